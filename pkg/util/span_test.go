package util

import (
	"testing"
	"time"
)

func TestParseSpan(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"5m", 5 * time.Minute},
		{"1h", time.Hour},
		{"1d", 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{"60000", time.Minute},
		{" 15m ", 15 * time.Minute},
	}
	for _, tc := range cases {
		got, err := ParseSpan(tc.in)
		if err != nil {
			t.Fatalf("ParseSpan(%q): unexpected error %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseSpan(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseSpanRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "0", "-5", "0s", "0d", "abc", "1x", "d", "-1h", "500us",
		"300000d", "50000w", "20000000000000", "9223372036854775807", "9999999999h"} {
		if _, err := ParseSpan(in); err == nil {
			t.Fatalf("ParseSpan(%q): expected error", in)
		}
	}
}

func TestParseSpanLargestAccepted(t *testing.T) {
	got, err := ParseSpan("106751d")
	if err != nil {
		t.Fatalf("ParseSpan(106751d): %v", err)
	}
	if got != 106751*24*time.Hour {
		t.Fatalf("ParseSpan(106751d) = %v", got)
	}
}

func TestUnixMilli(t *testing.T) {
	got := UnixMilli(1_700_000_000_123)
	if got.UnixMilli() != 1_700_000_000_123 {
		t.Fatalf("unexpected millis %d", got.UnixMilli())
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC, got %v", got.Location())
	}
}
