package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	domsvc "MacroPulse/internal/domain/service"
	"MacroPulse/internal/services/features"
	applogger "MacroPulse/pkg/logger"
	"MacroPulse/pkg/metrics"
)

// MarketSubject asks for an analysis across every indicator.
const MarketSubject = "MARKET"

// Window is one candle summary fed to the prompt.
type Window struct {
	Label  string
	Bucket time.Duration
	Range  time.Duration
}

// AnalysisGuard serves narrative analyses behind a per-subject TTL cache and
// one global cooldown shared by all subjects.
type AnalysisGuard struct {
	gen     domsvc.Generator
	cache   domrepo.AnalysisStore
	snap    *SnapshotHolder
	agg     *CandleAggregator
	news    *NewsUseCase
	metrics domrepo.Metrics
	l       *applogger.Logger

	subjects map[string]struct{}
	symbols  []string
	fine     Window
	coarse   Window
	ttl      time.Duration
	cooldown time.Duration
	timeout  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastCall time.Time
}

// AnalysisOption configures AnalysisGuard.
type AnalysisOption func(*AnalysisGuard)

func WithAnalysisTTL(d time.Duration) AnalysisOption {
	return func(g *AnalysisGuard) { g.ttl = d }
}

func WithCooldown(d time.Duration) AnalysisOption {
	return func(g *AnalysisGuard) { g.cooldown = d }
}

func WithGenerateTimeout(d time.Duration) AnalysisOption {
	return func(g *AnalysisGuard) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithWindows(fine, coarse Window) AnalysisOption {
	return func(g *AnalysisGuard) {
		g.fine = fine
		g.coarse = coarse
	}
}

func WithHeadlines(n *NewsUseCase) AnalysisOption {
	return func(g *AnalysisGuard) { g.news = n }
}

func WithAnalysisMetrics(m domrepo.Metrics) AnalysisOption {
	return func(g *AnalysisGuard) {
		if m != nil {
			g.metrics = m
		}
	}
}

func WithAnalysisLogger(l *applogger.Logger) AnalysisOption {
	return func(g *AnalysisGuard) {
		if l != nil {
			g.l = l
		}
	}
}

func WithAnalysisClock(now func() time.Time) AnalysisOption {
	return func(g *AnalysisGuard) { g.now = now }
}

// NewAnalysisGuard builds a guard answering for symbols and MarketSubject.
func NewAnalysisGuard(gen domsvc.Generator, cache domrepo.AnalysisStore, snap *SnapshotHolder, agg *CandleAggregator, symbols []string, opts ...AnalysisOption) *AnalysisGuard {
	g := &AnalysisGuard{
		gen:      gen,
		cache:    cache,
		snap:     snap,
		agg:      agg,
		metrics:  metrics.Nop{},
		l:        applogger.Nop(),
		symbols:  symbols,
		subjects: make(map[string]struct{}, len(symbols)+1),
		fine:     Window{Label: "fine", Bucket: time.Minute, Range: time.Hour},
		coarse:   Window{Label: "coarse", Bucket: time.Hour, Range: 7 * 24 * time.Hour},
		ttl:      30 * time.Minute,
		cooldown: time.Minute,
		timeout:  45 * time.Second,
		now:      time.Now,
	}
	for _, s := range symbols {
		g.subjects[s] = struct{}{}
	}
	g.subjects[MarketSubject] = struct{}{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// KnownSubject reports whether subject can be analysed.
func (g *AnalysisGuard) KnownSubject(subject string) bool {
	_, ok := g.subjects[subject]
	return ok
}

// GetAnalysis never fails: downstream errors degrade to a stale entry or a
// placeholder, and an active cooldown yields AnalysisWait.
func (g *AnalysisGuard) GetAnalysis(ctx context.Context, subject string) models.AnalysisResult {
	res := g.getAnalysis(ctx, subject)
	g.metrics.RecordAnalysis(string(res.Status))
	return res
}

func (g *AnalysisGuard) getAnalysis(ctx context.Context, subject string) models.AnalysisResult {
	now := g.now()

	entry := g.lookup(ctx, subject)
	if entry != nil && now.Sub(time.UnixMilli(entry.GeneratedAt)) < g.ttl {
		return resultFrom(entry, models.AnalysisCached)
	}

	if wait, ok := g.reserve(now); !ok {
		return models.AnalysisResult{
			Subject:     subject,
			Status:      models.AnalysisWait,
			RetryAfter:  wait,
			RetryAfterS: int(math.Ceil(wait.Seconds())),
		}
	}

	prompt, data := g.buildPrompt(ctx, subject)
	text, err := g.generate(ctx, prompt, data)
	if err != nil {
		kind := "downstream_error"
		if errors.Is(err, domrepo.ErrDownstreamRateLimited) {
			kind = "downstream_rate_limited"
		}
		g.metrics.RecordError(kind)
		g.l.Warn("analysis generation failed",
			applogger.String("subject", subject),
			applogger.String("kind", kind),
			applogger.Error(err),
		)
		if entry != nil {
			return resultFrom(entry, models.AnalysisStale)
		}
		return models.AnalysisResult{
			Subject: subject,
			Status:  models.AnalysisDegraded,
			Text:    placeholder(subject),
		}
	}

	fresh := models.AnalysisEntry{Subject: subject, GeneratedAt: g.now().UnixMilli(), Text: text}
	// Detached so a cancelled request still caches the generated text.
	if err := g.cache.Put(context.WithoutCancel(ctx), fresh); err != nil {
		g.metrics.RecordError("analysis_cache")
		g.l.Error("analysis cache write failed", applogger.String("subject", subject), applogger.Error(err))
	}
	return resultFrom(&fresh, models.AnalysisFresh)
}

// reserve claims the global cooldown slot. It returns the remaining wait and
// false when the slot is taken.
func (g *AnalysisGuard) reserve(now time.Time) (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.lastCall.IsZero() {
		if elapsed := now.Sub(g.lastCall); elapsed < g.cooldown {
			return g.cooldown - elapsed, false
		}
	}
	g.lastCall = now
	return 0, true
}

func (g *AnalysisGuard) lookup(ctx context.Context, subject string) *models.AnalysisEntry {
	e, ok, err := g.cache.Get(ctx, subject)
	if err != nil {
		g.l.Warn("analysis cache read failed", applogger.String("subject", subject), applogger.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	return e
}

// generate runs the call detached from the request so a finished result is
// still cached if the client goes away.
func (g *AnalysisGuard) generate(ctx context.Context, prompt string, data map[string]any) (text string, err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: panic: %v", domrepo.ErrDownstreamError, r)
		}
	}()

	start := time.Now()
	text, err = g.gen.Generate(ctx, prompt, data)
	g.metrics.RecordLatency("analysis_generate", time.Since(start).Seconds())
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("%w: empty completion", domrepo.ErrDownstreamError)
	}
	return text, err
}

func (g *AnalysisGuard) buildPrompt(ctx context.Context, subject string) (string, map[string]any) {
	snap := g.snap.Load()
	targets := g.symbols
	if subject != MarketSubject {
		targets = []string{subject}
	}

	windows := map[string]map[string]features.Summary{}
	for _, w := range []Window{g.fine, g.coarse} {
		per := map[string]features.Summary{}
		for _, sym := range targets {
			cs, err := g.agg.Aggregate(ctx, sym, w.Bucket.Milliseconds(), w.Range.Milliseconds())
			if err != nil {
				g.l.Warn("analysis candles unavailable",
					applogger.String("indicator", sym),
					applogger.String("window", w.Label),
					applogger.Error(err),
				)
				continue
			}
			if s, ok := features.Summarize(cs, w.Bucket); ok {
				per[sym] = s
			}
		}
		windows[w.Label] = per
	}

	data := map[string]any{
		"subject":  subject,
		"snapshot": snap,
		"windows":  windows,
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a concise macro market briefing for %s.\n", subject)
	fmt.Fprintf(&b, "Latest snapshot (status %s, as of %s):\n", snap.Status, time.UnixMilli(snap.AsOf).UTC().Format(time.RFC3339))
	keys := make([]string, 0, len(snap.Values))
	for k := range snap.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %.4f\n", k, snap.Values[k])
	}
	for _, w := range []Window{g.fine, g.coarse} {
		fmt.Fprintf(&b, "%s window (%s buckets over %s):\n", w.Label, w.Bucket, w.Range)
		per := windows[w.Label]
		for _, sym := range targets {
			s, ok := per[sym]
			if !ok {
				fmt.Fprintf(&b, "- %s: no data\n", sym)
				continue
			}
			fmt.Fprintf(&b, "- %s: %.4f -> %.4f (%+.2f%%), range %.4f..%.4f, realized vol %.4f\n",
				sym, s.First, s.Last, s.ChangePct, s.Low, s.High, s.RealizedVol)
		}
	}
	if g.news != nil && subject == MarketSubject {
		if hs := g.news.Cached(10); len(hs) > 0 {
			data["headlines"] = hs
			b.WriteString("Recent headlines:\n")
			for _, h := range hs {
				fmt.Fprintf(&b, "- %s\n", h.Title)
			}
		}
	}
	b.WriteString("Explain the main drivers and risks in plain language. Do not give investment advice.")
	return b.String(), data
}

func resultFrom(e *models.AnalysisEntry, status models.AnalysisStatus) models.AnalysisResult {
	return models.AnalysisResult{
		Subject:     e.Subject,
		Status:      status,
		Text:        e.Text,
		GeneratedAt: e.GeneratedAt,
	}
}

func placeholder(subject string) string {
	return fmt.Sprintf("Analysis for %s is temporarily unavailable. Please try again later.", subject)
}
