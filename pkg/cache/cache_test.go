package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type payload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestMemoryCache_RoundTripJSON(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", payload{Name: "DXY", Value: 104.2}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got payload
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "DXY" || got.Value != 104.2 {
		t.Fatalf("got %+v", got)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	mc := NewMemoryCache(WithMemoryCleanup(0), WithMemoryClock(clk.Now))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "k", "v", time.Minute)
	clk.Advance(59 * time.Second)
	if ok, _ := mc.Exists(ctx, "k"); !ok {
		t.Fatalf("expected key alive before expiry")
	}
	clk.Advance(2 * time.Second)
	var s string
	if err := mc.Get(ctx, "k", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("err=%v want miss", err)
	}
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	mc := NewMemoryCache(WithMemoryCleanup(0), WithMemoryMaxSize(2), WithMemoryClock(clk.Now))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", 1, 0)
	clk.Advance(time.Second)
	_ = mc.Set(ctx, "b", 2, 0)
	clk.Advance(time.Second)
	var v int
	_ = mc.Get(ctx, "a", &v) // touch a
	clk.Advance(time.Second)
	_ = mc.Set(ctx, "c", 3, 0)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if ok, _ := mc.Exists(ctx, k); !ok {
			t.Fatalf("%s missing", k)
		}
	}
}

func TestLayeredCache_FallsThroughToL2(t *testing.T) {
	l2 := NewMemoryCache(WithMemoryCleanup(0))
	lc := NewLayeredCache(l2)
	defer lc.Close()
	ctx := context.Background()

	_ = l2.Set(ctx, "only-l2", payload{Name: "US10Y"}, 0)
	var got payload
	if err := lc.Get(ctx, "only-l2", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "US10Y" {
		t.Fatalf("got %+v", got)
	}

	if err := lc.Set(ctx, "both", payload{Name: "KR10Y"}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	var fromL2 payload
	if err := l2.Get(ctx, "both", &fromL2); err != nil || fromL2.Name != "KR10Y" {
		t.Fatalf("write-through missing: %+v %v", fromL2, err)
	}

	_ = lc.Delete(ctx, "both")
	if err := lc.Get(ctx, "both", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("err=%v want miss after delete", err)
	}
}

type downService struct{ *MemoryCache }

func (downService) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("connection refused")
}

func (downService) Get(context.Context, string, interface{}) error {
	return errors.New("connection refused")
}

func TestLayeredCache_KeepsMemoryWhenL2Down(t *testing.T) {
	lc := NewLayeredCache(downService{NewMemoryCache(WithMemoryCleanup(0))})
	defer lc.Close()
	ctx := context.Background()

	if err := lc.Set(ctx, "analysis:USDKRW", payload{Name: "USDKRW"}, 0); err == nil {
		t.Fatalf("expected L2 error to surface")
	}
	var got payload
	if err := lc.Get(ctx, "analysis:USDKRW", &got); err != nil || got.Name != "USDKRW" {
		t.Fatalf("memory layer not written: %+v %v", got, err)
	}
}
