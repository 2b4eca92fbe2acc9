package repository

import (
	"context"

	"MacroPulse/internal/domain/models"
)

// TickStore is the append-only tick log.
type TickStore interface {
	// Append records one tick. Non-finite values fail with ErrInvalidValue.
	Append(ctx context.Context, ts int64, indicator string, value float64) error
	// AppendBatch records all finite values under one timestamp, atomically
	// with respect to Query. Non-finite values are skipped.
	AppendBatch(ctx context.Context, ts int64, values map[string]float64) error
	// Query returns ticks with start <= ts <= end ordered by ts ascending.
	Query(ctx context.Context, indicator string, start, end int64) ([]models.Tick, error)
	Health(ctx context.Context) error
	Close() error
}

// IndicatorSource fetches the current value of one indicator.
type IndicatorSource interface {
	Fetch(ctx context.Context, indicator string) (float64, error)
}

// HeadlineSource fetches recent news headlines.
type HeadlineSource interface {
	Headlines(ctx context.Context) ([]models.Headline, error)
}

// TickPublisher forwards written ticks to downstream consumers.
type TickPublisher interface {
	PublishTicks(ctx context.Context, ticks []models.Tick) error
	Close() error
}

// AnalysisStore keeps the last generated analysis per subject. Entries are
// kept past their TTL so that they can be served as stale results.
type AnalysisStore interface {
	Get(ctx context.Context, subject string) (*models.AnalysisEntry, bool, error)
	Put(ctx context.Context, entry models.AnalysisEntry) error
}

type Metrics interface {
	RecordCycle(status string)
	RecordSkippedCycle()
	RecordFetchError(indicator string)
	RecordLastValue(indicator string, value float64)
	RecordLatency(op string, seconds float64)
	RecordAnalysis(status string)
	RecordError(kind string)
}
