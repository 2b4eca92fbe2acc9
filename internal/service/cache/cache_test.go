package cache

import (
	"context"
	"testing"
	"time"

	"MacroPulse/internal/domain/models"
	pkgcache "MacroPulse/pkg/cache"
)

func TestTTLCache_ExpiryAndPeek(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewTTLCacheWithClock[[]string](func() time.Time { return now })

	c.Set("news", []string{"a", "b"}, 5*time.Minute)
	if v, ok := c.Get("news"); !ok || len(v) != 2 {
		t.Fatalf("fresh get: %v %v", v, ok)
	}
	now = now.Add(6 * time.Minute)
	if _, ok := c.Get("news"); ok {
		t.Fatalf("expected expired")
	}
	if v, ok := c.Peek("news"); !ok || len(v) != 2 {
		t.Fatalf("peek should return expired value: %v %v", v, ok)
	}
	if _, ok := c.Peek("other"); ok {
		t.Fatalf("peek of missing key")
	}
}

func TestAnalysisStore_RoundTrip(t *testing.T) {
	mc := pkgcache.NewMemoryCache(pkgcache.WithMemoryCleanup(0))
	defer mc.Close()
	s := NewAnalysisStore(mc)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "USDKRW"); ok || err != nil {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}
	in := models.AnalysisEntry{Subject: "USDKRW", GeneratedAt: 1234, Text: "won weakening"}
	if err := s.Put(ctx, in); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := s.Get(ctx, "USDKRW")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if *got != in {
		t.Fatalf("got %+v want %+v", *got, in)
	}
}
