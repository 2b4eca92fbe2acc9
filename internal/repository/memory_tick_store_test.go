package repository

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	domrepo "MacroPulse/internal/domain/repository"
)

func TestMemoryTickStore_AppendQueryOrdering(t *testing.T) {
	s := NewMemoryTickStore()
	ctx := context.Background()

	for _, tc := range []struct {
		ts int64
		v  float64
	}{{300, 3}, {100, 1}, {200, 2}, {200, 2.5}} {
		if err := s.Append(ctx, tc.ts, "USDKRW", tc.v); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.Query(ctx, "USDKRW", 100, 300)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	want := []float64{1, 2, 2.5, 3}
	if len(got) != len(want) {
		t.Fatalf("len=%d want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Value != w {
			t.Fatalf("idx %d value=%v want %v", i, got[i].Value, w)
		}
		if i > 0 && got[i].Timestamp < got[i-1].Timestamp {
			t.Fatalf("not sorted at %d", i)
		}
	}
}

func TestMemoryTickStore_ClosedRange(t *testing.T) {
	s := NewMemoryTickStore()
	ctx := context.Background()
	for ts := int64(0); ts < 10; ts++ {
		_ = s.Append(ctx, ts*10, "DXY", float64(ts))
	}
	got, _ := s.Query(ctx, "DXY", 20, 50)
	if len(got) != 4 {
		t.Fatalf("got %d ticks, want 4 (both ends inclusive)", len(got))
	}
	if got[0].Timestamp != 20 || got[3].Timestamp != 50 {
		t.Fatalf("bounds wrong: %+v", got)
	}
}

func TestMemoryTickStore_EmptyResultNotNil(t *testing.T) {
	s := NewMemoryTickStore()
	got, err := s.Query(context.Background(), "NOPE", 0, 100)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestMemoryTickStore_NonFiniteRejected(t *testing.T) {
	s := NewMemoryTickStore()
	ctx := context.Background()
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := s.Append(ctx, 1, "US10Y", v)
		if !errors.Is(err, domrepo.ErrInvalidValue) {
			t.Fatalf("value %v: err=%v want ErrInvalidValue", v, err)
		}
	}
	got, _ := s.Query(ctx, "US10Y", 0, 10)
	if len(got) != 0 {
		t.Fatalf("non-finite values stored: %+v", got)
	}
}

func TestMemoryTickStore_BatchSkipsNonFinite(t *testing.T) {
	s := NewMemoryTickStore()
	ctx := context.Background()
	err := s.AppendBatch(ctx, 1000, map[string]float64{
		"USDKRW": 1380.5,
		"DXY":    math.NaN(),
		"US10Y":  4.2,
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if got, _ := s.Query(ctx, "DXY", 0, 2000); len(got) != 0 {
		t.Fatalf("NaN stored for DXY")
	}
	for _, ind := range []string{"USDKRW", "US10Y"} {
		got, _ := s.Query(ctx, ind, 1000, 1000)
		if len(got) != 1 || got[0].Timestamp != 1000 {
			t.Fatalf("%s: %+v", ind, got)
		}
	}
}

func TestMemoryTickStore_DuplicatesRetained(t *testing.T) {
	s := NewMemoryTickStore()
	ctx := context.Background()
	_ = s.Append(ctx, 5, "JPYKRW", 9.1)
	_ = s.Append(ctx, 5, "JPYKRW", 9.2)
	got, _ := s.Query(ctx, "JPYKRW", 5, 5)
	if len(got) != 2 || got[0].Value != 9.1 || got[1].Value != 9.2 {
		t.Fatalf("duplicates: %+v", got)
	}
}

func TestMemoryTickStore_BatchAtomicUnderConcurrency(t *testing.T) {
	s := NewMemoryTickStore()
	ctx := context.Background()
	const n = 200

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ts := int64(1); ts <= n; ts++ {
			_ = s.AppendBatch(ctx, ts, map[string]float64{"A": 1, "B": 2})
		}
		close(stop)
	}()

	violations := 0
	for done := false; !done; {
		select {
		case <-stop:
			done = true
		default:
		}
		// Every visible batch must have both members.
		a, _ := s.Query(ctx, "A", 0, n)
		b, _ := s.Query(ctx, "B", 0, n)
		if len(b) < len(a)-1 || len(a) < len(b)-1 {
			violations++
		}
	}
	wg.Wait()
	if violations != 0 {
		t.Fatalf("observed %d partial batches", violations)
	}
	a, _ := s.Query(ctx, "A", 0, n)
	b, _ := s.Query(ctx, "B", 0, n)
	if len(a) != n || len(b) != n {
		t.Fatalf("final counts a=%d b=%d", len(a), len(b))
	}
}
