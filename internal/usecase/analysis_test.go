package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	"MacroPulse/internal/repository"
)

func newTestGuard(gen *fakeGenerator, cache domrepo.AnalysisStore, clk *clock, opts ...AnalysisOption) *AnalysisGuard {
	store := repository.NewMemoryTickStore()
	agg := NewCandleAggregator(store).WithClock(clk.Now)
	opts = append([]AnalysisOption{
		WithAnalysisClock(clk.Now),
		WithAnalysisTTL(10 * time.Minute),
		WithCooldown(time.Minute),
	}, opts...)
	return NewAnalysisGuard(gen, cache, NewSnapshotHolder(), agg, []string{"USDKRW", "DXY"}, opts...)
}

func TestAnalysis_SecondCallWithinCooldownWaits(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("429: %w", domrepo.ErrDownstreamRateLimited)}
	clk := newClock(1_000_000)
	g := newTestGuard(gen, newMapAnalysisStore(), clk)
	ctx := context.Background()

	first := g.GetAnalysis(ctx, "USDKRW")
	if first.Status != models.AnalysisDegraded || first.Text == "" {
		t.Fatalf("first=%+v", first)
	}
	clk.Advance(10 * time.Second)
	second := g.GetAnalysis(ctx, "USDKRW")
	if second.Status != models.AnalysisWait {
		t.Fatalf("second=%+v", second)
	}
	if second.RetryAfter != 50*time.Second || second.RetryAfterS != 50 {
		t.Fatalf("retry after=%v (%ds)", second.RetryAfter, second.RetryAfterS)
	}
	if gen.Calls() != 1 {
		t.Fatalf("generator calls=%d want 1", gen.Calls())
	}
}

func TestAnalysis_CooldownIsGlobalAcrossSubjects(t *testing.T) {
	gen := &fakeGenerator{text: "ok"}
	clk := newClock(0)
	g := newTestGuard(gen, newMapAnalysisStore(), clk)
	ctx := context.Background()

	if r := g.GetAnalysis(ctx, "USDKRW"); r.Status != models.AnalysisFresh {
		t.Fatalf("first=%+v", r)
	}
	if r := g.GetAnalysis(ctx, "DXY"); r.Status != models.AnalysisWait {
		t.Fatalf("other subject should wait: %+v", r)
	}
	clk.Advance(time.Minute)
	if r := g.GetAnalysis(ctx, "DXY"); r.Status != models.AnalysisFresh {
		t.Fatalf("after cooldown=%+v", r)
	}
	if gen.Calls() != 2 {
		t.Fatalf("calls=%d", gen.Calls())
	}
}

func TestAnalysis_TTLHitAndExpiry(t *testing.T) {
	gen := &fakeGenerator{text: "won weaker on yield gap"}
	clk := newClock(0)
	g := newTestGuard(gen, newMapAnalysisStore(), clk)
	ctx := context.Background()

	fresh := g.GetAnalysis(ctx, "USDKRW")
	if fresh.Status != models.AnalysisFresh || fresh.Text != gen.text {
		t.Fatalf("fresh=%+v", fresh)
	}
	clk.Advance(9 * time.Minute)
	cached := g.GetAnalysis(ctx, "USDKRW")
	if cached.Status != models.AnalysisCached || cached.GeneratedAt != fresh.GeneratedAt {
		t.Fatalf("cached=%+v", cached)
	}
	if gen.Calls() != 1 {
		t.Fatalf("cache hit called generator: %d", gen.Calls())
	}

	clk.Advance(2 * time.Minute)
	again := g.GetAnalysis(ctx, "USDKRW")
	if again.Status != models.AnalysisFresh {
		t.Fatalf("after ttl=%+v", again)
	}
	if gen.Calls() != 2 {
		t.Fatalf("calls=%d want exactly 2", gen.Calls())
	}
}

func TestAnalysis_RateLimitedServesStale(t *testing.T) {
	gen := &fakeGenerator{text: "first"}
	clk := newClock(0)
	cache := newMapAnalysisStore()
	g := newTestGuard(gen, cache, clk)
	ctx := context.Background()

	_ = g.GetAnalysis(ctx, "USDKRW")
	clk.Advance(20 * time.Minute)
	gen.mu.Lock()
	gen.err = domrepo.ErrDownstreamRateLimited
	gen.mu.Unlock()

	r := g.GetAnalysis(ctx, "USDKRW")
	if r.Status != models.AnalysisStale || r.Text != "first" {
		t.Fatalf("result=%+v", r)
	}
	e, _, _ := cache.Get(ctx, "USDKRW")
	if e.Text != "first" {
		t.Fatalf("failed call overwrote cache: %+v", e)
	}
}

func TestAnalysis_OtherErrorDegrades(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("connection reset")}
	g := newTestGuard(gen, newMapAnalysisStore(), newClock(0))
	r := g.GetAnalysis(context.Background(), "MARKET")
	if r.Status != models.AnalysisDegraded || !strings.Contains(r.Text, "MARKET") {
		t.Fatalf("result=%+v", r)
	}
}

func TestAnalysis_EmptyCompletionDegrades(t *testing.T) {
	gen := &fakeGenerator{text: "   "}
	g := newTestGuard(gen, newMapAnalysisStore(), newClock(0))
	if r := g.GetAnalysis(context.Background(), "DXY"); r.Status != models.AnalysisDegraded {
		t.Fatalf("result=%+v", r)
	}
}

func TestAnalysis_ConcurrentRequestsReserveOnce(t *testing.T) {
	block := make(chan struct{})
	gen := &fakeGenerator{text: "ok", block: block}
	g := newTestGuard(gen, newMapAnalysisStore(), newClock(0))

	const n = 20
	var wg sync.WaitGroup
	results := make([]models.AnalysisResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = g.GetAnalysis(context.Background(), "USDKRW")
		}(i)
	}
	// Waiters return without blocking; release the one in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(block)
	wg.Wait()

	fresh, wait := 0, 0
	for _, r := range results {
		switch r.Status {
		case models.AnalysisFresh:
			fresh++
		case models.AnalysisWait:
			wait++
		}
	}
	if gen.Calls() != 1 || fresh != 1 || wait != n-1 {
		t.Fatalf("calls=%d fresh=%d wait=%d", gen.Calls(), fresh, wait)
	}
}

func TestAnalysis_PromptIncludesSnapshotAndWindows(t *testing.T) {
	gen := &fakeGenerator{text: "ok"}
	clk := newClock(10_000_000)
	store := repository.NewMemoryTickStore()
	ctx := context.Background()
	_ = store.Append(ctx, 9_990_000, "USDKRW", 1380)
	_ = store.Append(ctx, 9_995_000, "USDKRW", 1385)
	agg := NewCandleAggregator(store).WithClock(clk.Now)

	g := NewAnalysisGuard(gen, newMapAnalysisStore(), NewSnapshotHolder(), agg, []string{"USDKRW"},
		WithAnalysisClock(clk.Now))
	_ = g.GetAnalysis(ctx, "USDKRW")

	if len(gen.prompts) != 1 {
		t.Fatalf("prompts=%d", len(gen.prompts))
	}
	p := gen.prompts[0]
	for _, want := range []string{"USDKRW", "fine window", "coarse window", "1380.0000 -> 1385.0000"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestAnalysis_KnownSubject(t *testing.T) {
	g := newTestGuard(&fakeGenerator{}, newMapAnalysisStore(), newClock(0))
	if !g.KnownSubject("USDKRW") || !g.KnownSubject(MarketSubject) || g.KnownSubject("BTC") {
		t.Fatalf("subject set wrong")
	}
}

func TestAnalysis_ResultCachedWhenCallerCancels(t *testing.T) {
	gen := &fakeGenerator{text: "won firm"}
	clk := newClock(0)
	store := newMapAnalysisStore()
	g := newTestGuard(gen, store, clk)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if r := g.GetAnalysis(ctx, "USDKRW"); r.Status != models.AnalysisFresh {
		t.Fatalf("first=%+v", r)
	}
	if _, ok, _ := store.Get(context.Background(), "USDKRW"); !ok {
		t.Fatalf("fresh result was not cached")
	}

	clk.Advance(time.Second)
	r := g.GetAnalysis(context.Background(), "USDKRW")
	if r.Status != models.AnalysisCached || r.Text != "won firm" {
		t.Fatalf("second=%+v", r)
	}
	if gen.Calls() != 1 {
		t.Fatalf("generator calls=%d want 1", gen.Calls())
	}
}
