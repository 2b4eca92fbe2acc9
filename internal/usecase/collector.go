package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	applogger "MacroPulse/pkg/logger"
	"MacroPulse/pkg/metrics"
)

// ErrCycleInProgress is returned by RunCycle when a previous cycle has not finished.
var ErrCycleInProgress = errors.New("collection cycle already running")

// Collector drives periodic collection cycles: fetch every primary indicator
// concurrently, derive computed indicators, write one batch, publish a new
// snapshot.
type Collector struct {
	source    domrepo.IndicatorSource
	store     domrepo.TickStore
	snap      *SnapshotHolder
	publisher domrepo.TickPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger

	indicators   []string
	computed     []models.ComputedIndicator
	interval     time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	running atomic.Bool
	wg      sync.WaitGroup
}

// CollectorOption configures Collector.
type CollectorOption func(*Collector)

func WithCollectorInterval(d time.Duration) CollectorOption {
	return func(c *Collector) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithFetchTimeout(d time.Duration) CollectorOption {
	return func(c *Collector) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

func WithComputed(computed []models.ComputedIndicator) CollectorOption {
	return func(c *Collector) {
		c.computed = computed
	}
}

func WithPublisher(p domrepo.TickPublisher) CollectorOption {
	return func(c *Collector) {
		c.publisher = p
	}
}

func WithCollectorMetrics(m domrepo.Metrics) CollectorOption {
	return func(c *Collector) {
		if m != nil {
			c.metrics = m
		}
	}
}

func WithCollectorLogger(l *applogger.Logger) CollectorOption {
	return func(c *Collector) {
		if l != nil {
			c.l = l
		}
	}
}

func WithCollectorClock(now func() time.Time) CollectorOption {
	return func(c *Collector) {
		c.now = now
	}
}

func NewCollector(source domrepo.IndicatorSource, store domrepo.TickStore, snap *SnapshotHolder, indicators []string, opts ...CollectorOption) *Collector {
	c := &Collector{
		source:       source,
		store:        store,
		snap:         snap,
		metrics:      metrics.Nop{},
		l:            applogger.Nop(),
		indicators:   indicators,
		interval:     10 * time.Second,
		fetchTimeout: 8 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Symbols returns every indicator the collector produces, primary first.
func (c *Collector) Symbols() []string {
	out := make([]string, 0, len(c.indicators)+len(c.computed))
	out = append(out, c.indicators...)
	for _, ci := range c.computed {
		out = append(out, ci.Symbol)
	}
	return out
}

// Run executes one cycle immediately and then one per interval until ctx is
// done. A tick that fires while a cycle is still running is skipped.
func (c *Collector) Run(ctx context.Context) error {
	c.l.Info("collector started",
		applogger.Strings("indicators", c.indicators),
		applogger.Duration("interval_ms", c.interval),
	)
	c.trigger(ctx)

	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			c.wg.Wait()
			c.l.Info("collector stopped")
			return nil
		case <-t.C:
			c.trigger(ctx)
		}
	}
}

func (c *Collector) trigger(ctx context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		c.metrics.RecordSkippedCycle()
		c.l.Warn("collection tick skipped, previous cycle still running")
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.running.Store(false)
		c.cycle(ctx)
	}()
}

// RunCycle runs a single cycle synchronously and returns the published snapshot.
func (c *Collector) RunCycle(ctx context.Context) (*models.Snapshot, error) {
	if !c.running.CompareAndSwap(false, true) {
		c.metrics.RecordSkippedCycle()
		return nil, ErrCycleInProgress
	}
	defer c.running.Store(false)
	return c.cycle(ctx), nil
}

type fetchResult struct {
	indicator string
	value     float64
	err       error
}

func (c *Collector) cycle(ctx context.Context) *models.Snapshot {
	start := c.now()
	ts := start.UnixMilli()

	results := c.fetchAll(ctx)

	values := make(map[string]float64, len(results)+len(c.computed))
	var errs []string
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", r.indicator, r.err))
			c.metrics.RecordFetchError(r.indicator)
			c.l.Warn("indicator fetch failed", applogger.String("indicator", r.indicator), applogger.Error(r.err))
			continue
		}
		values[r.indicator] = r.value
	}

	for _, ci := range c.computed {
		a, okA := values[ci.Minuend]
		b, okB := values[ci.Subtrahend]
		if !okA || !okB {
			errs = append(errs, fmt.Sprintf("%s: skipped, missing input", ci.Symbol))
			continue
		}
		v := a - b
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Sprintf("%s: %v", ci.Symbol, domrepo.ErrInvalidValue))
			continue
		}
		values[ci.Symbol] = v
	}

	degraded := len(values) < len(c.indicators)+len(c.computed)

	if len(values) > 0 {
		if err := c.store.AppendBatch(ctx, ts, values); err != nil {
			degraded = true
			errs = append(errs, fmt.Sprintf("store: %v", err))
			c.metrics.RecordError("store")
			c.l.Error("tick batch write failed", applogger.Int64("ts", ts), applogger.Error(err))
		} else {
			c.publish(ctx, ts, values)
		}
	}

	snap := c.nextSnapshot(values, errs, degraded)
	c.snap.publish(snap)

	for ind, v := range values {
		c.metrics.RecordLastValue(ind, v)
	}
	c.metrics.RecordCycle(string(snap.Status))
	c.metrics.RecordLatency("collect_cycle", time.Since(start).Seconds())
	c.l.Debug("collection cycle done",
		applogger.Int64("ts", ts),
		applogger.Int("obtained", len(values)),
		applogger.String("status", string(snap.Status)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return snap
}

// fetchAll fans out one bounded fetch per primary indicator and returns the
// results in configuration order.
func (c *Collector) fetchAll(ctx context.Context) []fetchResult {
	results := make([]fetchResult, len(c.indicators))
	var wg sync.WaitGroup
	for i, ind := range c.indicators {
		wg.Add(1)
		go func(i int, ind string) {
			defer wg.Done()
			v, err := c.fetchOne(ctx, ind)
			results[i] = fetchResult{indicator: ind, value: v, err: err}
		}(i, ind)
	}
	wg.Wait()
	return results
}

func (c *Collector) fetchOne(ctx context.Context, indicator string) (v float64, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			v, err = 0, fmt.Errorf("%w: panic: %v", domrepo.ErrSourceUnavailable, r)
		}
	}()

	v, err = c.source.Fetch(ctx, indicator)
	if err != nil {
		if errors.Is(err, domrepo.ErrSourceUnavailable) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", domrepo.ErrSourceUnavailable, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: non-finite value", domrepo.ErrSourceUnavailable)
	}
	return v, nil
}

func (c *Collector) publish(ctx context.Context, ts int64, values map[string]float64) {
	if c.publisher == nil {
		return
	}
	ticks := make([]models.Tick, 0, len(values))
	for ind, v := range values {
		ticks = append(ticks, models.Tick{Timestamp: ts, Indicator: ind, Value: v})
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i].Indicator < ticks[j].Indicator })
	if err := c.publisher.PublishTicks(ctx, ticks); err != nil {
		c.metrics.RecordError("publish")
		c.l.Warn("tick publish failed", applogger.Int64("ts", ts), applogger.Error(err))
	}
}

// nextSnapshot carries forward previous values for indicators not obtained
// this cycle.
func (c *Collector) nextSnapshot(values map[string]float64, errs []string, degraded bool) *models.Snapshot {
	prev := c.snap.Load()
	next := make(map[string]float64, len(prev.Values)+len(values))
	for k, v := range prev.Values {
		next[k] = v
	}
	for k, v := range values {
		next[k] = v
	}
	if len(errs) > models.MaxSnapshotErrors {
		errs = errs[len(errs)-models.MaxSnapshotErrors:]
	}
	if errs == nil {
		errs = []string{}
	}
	status := models.StatusOK
	if degraded {
		status = models.StatusDegraded
	}
	return &models.Snapshot{
		Values: next,
		AsOf:   c.now().UnixMilli(),
		Status: status,
		Errors: errs,
	}
}
