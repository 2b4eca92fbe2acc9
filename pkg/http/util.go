package http

import (
	"time"

	xutil "MacroPulse/pkg/util"
)

// ParseSpanParam parses a span query value such as "5m", "1d" or raw
// milliseconds. Zero and malformed values become ERR_INVALID_PARAMETER.
func ParseSpanParam(field, raw string) (time.Duration, *AppError) {
	d, err := xutil.ParseSpan(raw)
	if err != nil {
		return 0, InvalidParameterError(field, err.Error()).WithParam("value", raw)
	}
	return d, nil
}
