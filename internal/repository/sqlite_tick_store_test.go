package repository

import (
	"context"
	"math"
	"testing"

	"MacroPulse/pkg/sqlite"
)

func newSQLiteStore(t *testing.T) *SQLiteTickStore {
	t.Helper()
	client, err := sqlite.NewClient(sqlite.WithPath(":memory:"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.InitSchema(context.Background(), SQLiteSchema); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return NewSQLiteTickStore(client.DB(), nil)
}

func TestSQLiteTickStore_RoundTrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	if err := s.AppendBatch(ctx, 2000, map[string]float64{"USDKRW": 1390, "DXY": math.Inf(1)}); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if err := s.Append(ctx, 1000, "USDKRW", 1385); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(ctx, 2000, "USDKRW", 1391); err != nil {
		t.Fatalf("append dup: %v", err)
	}

	got, err := s.Query(ctx, "USDKRW", 0, 5000)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	want := []struct {
		ts int64
		v  float64
	}{{1000, 1385}, {2000, 1390}, {2000, 1391}}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i, w := range want {
		if got[i].Timestamp != w.ts || got[i].Value != w.v {
			t.Fatalf("idx %d: %+v want %+v", i, got[i], w)
		}
	}
	if dxy, _ := s.Query(ctx, "DXY", 0, 5000); len(dxy) != 0 {
		t.Fatalf("non-finite DXY stored")
	}
}

func TestSQLiteTickStore_Health(t *testing.T) {
	s := newSQLiteStore(t)
	if err := s.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}
