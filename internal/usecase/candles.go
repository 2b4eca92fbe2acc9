package usecase

import (
	"context"
	"fmt"
	"time"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	"MacroPulse/pkg/util"
)

// CandleAggregator folds raw ticks into OHLC buckets on demand. Results are
// never cached.
type CandleAggregator struct {
	store domrepo.TickStore
	now   func() time.Time
}

func NewCandleAggregator(store domrepo.TickStore) *CandleAggregator {
	return &CandleAggregator{store: store, now: time.Now}
}

// WithClock overrides the time source. Intended for tests.
func (a *CandleAggregator) WithClock(now func() time.Time) *CandleAggregator {
	a.now = now
	return a
}

// Aggregate returns one candle per non-empty bucket of width bucketMs over
// the window [now-rangeMs, now], ascending by bucket start.
func (a *CandleAggregator) Aggregate(ctx context.Context, indicator string, bucketMs, rangeMs int64) ([]models.Candle, error) {
	if indicator == "" {
		return nil, fmt.Errorf("indicator is empty: %w", domrepo.ErrInvalidParameter)
	}
	if bucketMs <= 0 {
		return nil, fmt.Errorf("bucket width %dms: %w", bucketMs, domrepo.ErrInvalidParameter)
	}
	if rangeMs <= 0 {
		return nil, fmt.Errorf("range %dms: %w", rangeMs, domrepo.ErrInvalidParameter)
	}

	end := a.now().UnixMilli()
	start := end - rangeMs
	ticks, err := a.store.Query(ctx, indicator, start, end)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	return foldCandles(ticks, bucketMs), nil
}

// AggregateSpan is Aggregate with span strings ("1m", "7d", raw ms).
func (a *CandleAggregator) AggregateSpan(ctx context.Context, indicator, interval, rng string) ([]models.Candle, error) {
	w, err := util.ParseSpan(interval)
	if err != nil {
		return nil, fmt.Errorf("interval: %v: %w", err, domrepo.ErrInvalidParameter)
	}
	r, err := util.ParseSpan(rng)
	if err != nil {
		return nil, fmt.Errorf("range: %v: %w", err, domrepo.ErrInvalidParameter)
	}
	return a.Aggregate(ctx, indicator, w.Milliseconds(), r.Milliseconds())
}

// foldCandles expects ticks ordered by timestamp. Since buckets are
// contiguous in time, each new bucket start closes the previous candle.
func foldCandles(ticks []models.Tick, bucketMs int64) []models.Candle {
	out := make([]models.Candle, 0)
	for _, t := range ticks {
		bs := bucketStart(t.Timestamp, bucketMs)
		n := len(out)
		if n == 0 || out[n-1].BucketStart != bs {
			out = append(out, models.Candle{
				BucketStart: bs,
				Open:        t.Value,
				High:        t.Value,
				Low:         t.Value,
				Close:       t.Value,
				Count:       1,
			})
			continue
		}
		c := &out[n-1]
		if t.Value > c.High {
			c.High = t.Value
		}
		if t.Value < c.Low {
			c.Low = t.Value
		}
		c.Close = t.Value
		c.Count++
	}
	return out
}

// bucketStart floors toward negative infinity so that buckets stay half-open
// [start, start+width) for negative timestamps as well.
func bucketStart(ts, width int64) int64 {
	q := ts / width
	if ts%width != 0 && ts < 0 {
		q--
	}
	return q * width
}
