package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	domrepo "MacroPulse/internal/domain/repository"
	xhttp "MacroPulse/pkg/http"
)

func TestHTTPSource_Fetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fx", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rates":{"KRW":1385.2}}`)
	})
	mux.HandleFunc("/jpy", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rates":{"KRW":"9.1234"}}`)
	})
	mux.HandleFunc("/chart", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"regularMarketPrice":104.25}}]}}`)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<span data-test="instrument-price-last">3,105.50</span>`)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rates":{}}`)
	})
	mux.HandleFunc("/down", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src, err := NewHTTPSource(xhttp.NewClient(), []Endpoint{
		{Symbol: "USDKRW", URL: srv.URL + "/fx", Extract: "json", Path: "rates.KRW"},
		{Symbol: "JPYKRW", URL: srv.URL + "/jpy", Extract: "json", Path: "rates.KRW", Scale: 100},
		{Symbol: "DXY", URL: srv.URL + "/chart", Extract: "json", Path: "chart.result.0.meta.regularMarketPrice"},
		{Symbol: "KR10Y", URL: srv.URL + "/page", Extract: "regex", Pattern: `instrument-price-last">([0-9.,]+)<`},
		{Symbol: "BROKEN", URL: srv.URL + "/broken", Extract: "json", Path: "rates.KRW"},
		{Symbol: "DOWN", URL: srv.URL + "/down", Extract: "json", Path: "x"},
	}, nil)
	if err != nil {
		t.Fatalf("new source: %v", err)
	}

	ctx := context.Background()
	want := map[string]float64{"USDKRW": 1385.2, "JPYKRW": 912.34, "DXY": 104.25, "KR10Y": 3105.5}
	for sym, w := range want {
		got, err := src.Fetch(ctx, sym)
		if err != nil {
			t.Fatalf("%s: %v", sym, err)
		}
		if math.Abs(got-w) > 1e-9 {
			t.Fatalf("%s=%v want %v", sym, got, w)
		}
	}
	for _, sym := range []string{"BROKEN", "DOWN", "UNKNOWN"} {
		if _, err := src.Fetch(ctx, sym); !errors.Is(err, domrepo.ErrSourceUnavailable) {
			t.Fatalf("%s: err=%v want ErrSourceUnavailable", sym, err)
		}
	}
}

func TestNewHTTPSource_RejectsBadConfig(t *testing.T) {
	cases := []Endpoint{
		{Symbol: "A", URL: "http://x", Extract: "regex", Pattern: `[0-9]+`},
		{Symbol: "B", URL: "http://x", Extract: "regex", Pattern: `(`},
		{Symbol: "C", URL: "http://x", Extract: "json"},
		{Symbol: "D", URL: "http://x", Extract: "xpath", Path: "a"},
	}
	for _, ep := range cases {
		if _, err := NewHTTPSource(xhttp.NewClient(), []Endpoint{ep}, nil); err == nil {
			t.Fatalf("%s: expected error", ep.Symbol)
		}
	}
}
