package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"MacroPulse/internal/domain/models"
)

type fakeSource struct {
	mu     sync.Mutex
	values map[string]float64
	errs   map[string]error
	panics map[string]bool
	delay  time.Duration
	calls  int
}

func (f *fakeSource) Fetch(ctx context.Context, indicator string) (float64, error) {
	f.mu.Lock()
	f.calls++
	v, ok := f.values[indicator]
	err := f.errs[indicator]
	p := f.panics[indicator]
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if p {
		panic("boom")
	}
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.New("no such indicator")
	}
	return v, nil
}

func (f *fakeSource) set(indicator string, v float64) {
	f.mu.Lock()
	f.values[indicator] = v
	f.mu.Unlock()
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(ms int64) *clock { return &clock{t: time.UnixMilli(ms)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	text    string
	err     error
	prompts []string
	block   chan struct{}
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, _ map[string]any) (string, error) {
	g.mu.Lock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	text, err, block := g.text, g.err, g.block
	g.mu.Unlock()
	if block != nil {
		<-block
	}
	return text, err
}

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type mapAnalysisStore struct {
	mu sync.Mutex
	m  map[string]models.AnalysisEntry
}

func newMapAnalysisStore() *mapAnalysisStore {
	return &mapAnalysisStore{m: map[string]models.AnalysisEntry{}}
}

func (s *mapAnalysisStore) Get(_ context.Context, subject string) (*models.AnalysisEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[subject]
	if !ok {
		return nil, false, nil
	}
	return &e, true, nil
}

func (s *mapAnalysisStore) Put(ctx context.Context, e models.AnalysisEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.m[e.Subject] = e
	s.mu.Unlock()
	return nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	ticks []models.Tick
	err   error
}

func (p *recordingPublisher) PublishTicks(_ context.Context, ticks []models.Tick) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticks = append(p.ticks, ticks...)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }
