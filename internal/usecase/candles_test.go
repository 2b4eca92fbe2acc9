package usecase

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"

	domrepo "MacroPulse/internal/domain/repository"
	"MacroPulse/internal/repository"
)

func TestAggregate_SingleBucketExample(t *testing.T) {
	store := repository.NewMemoryTickStore()
	ctx := context.Background()
	for _, tk := range []struct {
		ts int64
		v  float64
	}{{0, 100}, {30_000, 110}, {59_999, 90}} {
		_ = store.Append(ctx, tk.ts, "X", tk.v)
	}
	agg := NewCandleAggregator(store).WithClock(func() time.Time { return time.UnixMilli(60_000) })

	got, err := agg.Aggregate(ctx, "X", 60_000, 60_000)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("candles=%+v", got)
	}
	c := got[0]
	if c.BucketStart != 0 || c.Open != 100 || c.High != 110 || c.Low != 90 || c.Close != 90 || c.Count != 3 {
		t.Fatalf("candle=%+v", c)
	}
}

func TestAggregate_BucketsHalfOpenAndGapsOmitted(t *testing.T) {
	store := repository.NewMemoryTickStore()
	ctx := context.Background()
	_ = store.Append(ctx, 59_999, "X", 1)
	_ = store.Append(ctx, 60_000, "X", 2)
	_ = store.Append(ctx, 300_000, "X", 3)
	agg := NewCandleAggregator(store).WithClock(func() time.Time { return time.UnixMilli(400_000) })

	got, err := agg.Aggregate(ctx, "X", 60_000, 400_000)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	var starts []int64
	for _, c := range got {
		starts = append(starts, c.BucketStart)
	}
	if !reflect.DeepEqual(starts, []int64{0, 60_000, 300_000}) {
		t.Fatalf("bucket starts=%v", starts)
	}
}

func TestAggregate_RangeWindow(t *testing.T) {
	store := repository.NewMemoryTickStore()
	ctx := context.Background()
	_ = store.Append(ctx, 1_000, "X", 1) // outside
	_ = store.Append(ctx, 5_000, "X", 2) // start, inclusive
	_ = store.Append(ctx, 10_000, "X", 3)
	agg := NewCandleAggregator(store).WithClock(func() time.Time { return time.UnixMilli(10_000) })

	got, _ := agg.Aggregate(ctx, "X", 1_000_000, 5_000)
	if len(got) != 1 || got[0].Open != 2 || got[0].Close != 3 || got[0].Count != 2 {
		t.Fatalf("candles=%+v", got)
	}
}

func TestAggregate_EmptyRange(t *testing.T) {
	agg := NewCandleAggregator(repository.NewMemoryTickStore())
	got, err := agg.Aggregate(context.Background(), "X", 60_000, 3_600_000)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("want empty non-nil, got %#v", got)
	}
}

func TestAggregate_InvalidParameters(t *testing.T) {
	agg := NewCandleAggregator(repository.NewMemoryTickStore())
	ctx := context.Background()
	cases := []struct {
		name      string
		indicator string
		bucket    int64
		rng       int64
	}{
		{"zero bucket", "X", 0, 1000},
		{"negative bucket", "X", -5, 1000},
		{"zero range", "X", 1000, 0},
		{"empty indicator", "", 1000, 1000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := agg.Aggregate(ctx, tc.indicator, tc.bucket, tc.rng); !errors.Is(err, domrepo.ErrInvalidParameter) {
				t.Fatalf("err=%v want ErrInvalidParameter", err)
			}
		})
	}
	for _, spans := range [][2]string{{"0", "1d"}, {"1m", "abc"}, {"", "1h"}} {
		if _, err := agg.AggregateSpan(ctx, "X", spans[0], spans[1]); !errors.Is(err, domrepo.ErrInvalidParameter) {
			t.Fatalf("spans %v: err=%v", spans, err)
		}
	}
}

func TestAggregate_IdempotentAndOrdered(t *testing.T) {
	store := repository.NewMemoryTickStore()
	ctx := context.Background()
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		_ = store.Append(ctx, r.Int63n(3_600_000), "X", 100+r.NormFloat64())
	}
	agg := NewCandleAggregator(store).WithClock(func() time.Time { return time.UnixMilli(3_600_000) })

	a, err := agg.Aggregate(ctx, "X", 60_000, 3_600_000)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	b, _ := agg.Aggregate(ctx, "X", 60_000, 3_600_000)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("aggregate not idempotent")
	}
	total := 0
	for i, c := range a {
		if i > 0 && c.BucketStart <= a[i-1].BucketStart {
			t.Fatalf("not ascending at %d", i)
		}
		if c.Low > c.Open || c.Low > c.Close || c.High < c.Open || c.High < c.Close || c.Low > c.High {
			t.Fatalf("OHLC bounds violated: %+v", c)
		}
		total += c.Count
	}
	if total != 500 {
		t.Fatalf("ticks accounted=%d", total)
	}
}

func TestBucketStart_NegativeFloor(t *testing.T) {
	cases := map[int64]int64{-1: -60_000, -60_000: -60_000, -60_001: -120_000, 0: 0, 59_999: 0}
	for ts, want := range cases {
		if got := bucketStart(ts, 60_000); got != want {
			t.Fatalf("bucketStart(%d)=%d want %d", ts, got, want)
		}
	}
}
