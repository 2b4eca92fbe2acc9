package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	domrepo "MacroPulse/internal/domain/repository"
	xhttp "MacroPulse/pkg/http"
	applogger "MacroPulse/pkg/logger"
)

// Endpoint tells the source where and how to read one indicator.
type Endpoint struct {
	Symbol  string
	URL     string
	Extract string // "json" or "regex"
	Path    string // dotted path for json; numeric segments index arrays
	Pattern string // first capture group holds the number
	Scale   float64
	Headers map[string]string
}

type compiled struct {
	Endpoint
	re *regexp.Regexp
}

// HTTPSource fetches indicator values from configured HTTP endpoints.
type HTTPSource struct {
	client    *xhttp.Client
	endpoints map[string]compiled
	l         *applogger.Logger
}

func NewHTTPSource(client *xhttp.Client, endpoints []Endpoint, l *applogger.Logger) (*HTTPSource, error) {
	if l == nil {
		l = applogger.Nop()
	}
	s := &HTTPSource{client: client, endpoints: make(map[string]compiled, len(endpoints)), l: l}
	for _, ep := range endpoints {
		c := compiled{Endpoint: ep}
		if c.Scale == 0 {
			c.Scale = 1
		}
		switch ep.Extract {
		case "regex":
			re, err := regexp.Compile(ep.Pattern)
			if err != nil {
				return nil, fmt.Errorf("indicator %s: pattern: %w", ep.Symbol, err)
			}
			if re.NumSubexp() < 1 {
				return nil, fmt.Errorf("indicator %s: pattern needs a capture group", ep.Symbol)
			}
			c.re = re
		case "json", "":
			if ep.Path == "" {
				return nil, fmt.Errorf("indicator %s: json path is empty", ep.Symbol)
			}
		default:
			return nil, fmt.Errorf("indicator %s: unknown extract %q", ep.Symbol, ep.Extract)
		}
		s.endpoints[ep.Symbol] = c
	}
	return s, nil
}

func (s *HTTPSource) Fetch(ctx context.Context, indicator string) (float64, error) {
	ep, ok := s.endpoints[indicator]
	if !ok {
		return 0, fmt.Errorf("%w: no endpoint for %s", domrepo.ErrSourceUnavailable, indicator)
	}
	body, err := s.client.GetBytes(ctx, ep.URL, ep.Headers)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domrepo.ErrSourceUnavailable, err)
	}

	var v float64
	if ep.re != nil {
		v, err = extractRegex(body, ep.re)
	} else {
		v, err = extractJSON(body, ep.Path)
	}
	if err != nil {
		s.l.Debug("indicator parse failed",
			applogger.String("indicator", indicator),
			applogger.Int("bytes", len(body)),
			applogger.Error(err),
		)
		return 0, fmt.Errorf("%w: %s: %v", domrepo.ErrSourceUnavailable, indicator, err)
	}
	v *= ep.Scale
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s: non-finite value", domrepo.ErrSourceUnavailable, indicator)
	}
	return v, nil
}

func extractJSON(body []byte, path string) (float64, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return 0, fmt.Errorf("decode json: %w", err)
	}
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return 0, fmt.Errorf("path %q: missing key %q", path, seg)
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return 0, fmt.Errorf("path %q: bad index %q", path, seg)
			}
			cur = node[i]
		default:
			return 0, fmt.Errorf("path %q: cannot descend into %T at %q", path, cur, seg)
		}
	}
	switch v := cur.(type) {
	case json.Number:
		return v.Float64()
	case string:
		return parseNumber(v)
	default:
		return 0, fmt.Errorf("path %q: not a number (%T)", path, cur)
	}
}

func extractRegex(body []byte, re *regexp.Regexp) (float64, error) {
	m := re.FindSubmatch(body)
	if m == nil {
		return 0, fmt.Errorf("pattern %q: no match", re.String())
	}
	return parseNumber(string(m[1]))
}

// parseNumber accepts thousands separators ("1,385.20") and surrounding space.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = strings.TrimSuffix(s, "%")
	return strconv.ParseFloat(s, 64)
}

var _ domrepo.IndicatorSource = (*HTTPSource)(nil)
