package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseSpan parses a span such as "30s", "5m", "1h", "1d", "2w" or a bare
// number of milliseconds. Zero, negative and malformed input is an error.
func ParseSpan(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty span")
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms <= 0 {
			return 0, fmt.Errorf("span must be positive, got %q", s)
		}
		return scale(s, ms, time.Millisecond)
	}

	var d time.Duration
	switch unit := s[len(s)-1]; unit {
	case 'd', 'w':
		n, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid span %q", s)
		}
		if n <= 0 {
			return 0, fmt.Errorf("span must be positive, got %q", s)
		}
		u := 24 * time.Hour
		if unit == 'w' {
			u *= 7
		}
		if d, err = scale(s, n, u); err != nil {
			return 0, err
		}
	default:
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid span %q", s)
		}
		d = parsed
	}

	if d < time.Millisecond {
		return 0, fmt.Errorf("span must be at least 1ms, got %q", s)
	}
	return d, nil
}

// scale returns n*unit, failing instead of wrapping past MaxInt64.
func scale(s string, n int64, unit time.Duration) (time.Duration, error) {
	if n > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("invalid span %q: too large", s)
	}
	return time.Duration(n) * unit, nil
}

// UnixMilli converts a millisecond epoch into a UTC time.
func UnixMilli(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
