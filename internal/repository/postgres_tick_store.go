package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	applogger "MacroPulse/pkg/logger"
)

// PostgresSchema creates the tick table and its range-scan index.
var PostgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS ticks (
		id        BIGSERIAL PRIMARY KEY,
		ts        BIGINT           NOT NULL,
		indicator TEXT             NOT NULL,
		value     DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ticks_ts_indicator ON ticks (ts, indicator)`,
	`CREATE INDEX IF NOT EXISTS idx_ticks_indicator_ts ON ticks (indicator, ts)`,
}

// PostgresTickStore implements TickStore on PostgreSQL via pgx.
type PostgresTickStore struct {
	pool *pgxpool.Pool
	l    *applogger.Logger
}

func NewPostgresTickStore(pool *pgxpool.Pool, l *applogger.Logger) *PostgresTickStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &PostgresTickStore{pool: pool, l: l}
}

func (s *PostgresTickStore) Append(ctx context.Context, ts int64, indicator string, value float64) error {
	if !isFinite(value) {
		return fmt.Errorf("append %s@%d: %w", indicator, ts, domrepo.ErrInvalidValue)
	}
	if _, err := s.pool.Exec(ctx, `INSERT INTO ticks (ts, indicator, value) VALUES ($1, $2, $3)`, ts, indicator, value); err != nil {
		return fmt.Errorf("postgres append: %w", err)
	}
	return nil
}

func (s *PostgresTickStore) AppendBatch(ctx context.Context, ts int64, values map[string]float64) error {
	ticks := finiteTicks(ts, values)
	if len(ticks) == 0 {
		return nil
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, t := range ticks {
			batch.Queue(`INSERT INTO ticks (ts, indicator, value) VALUES ($1, $2, $3)`, t.Timestamp, t.Indicator, t.Value)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		s.l.Error("postgres append_batch error", applogger.Int64("ts", ts), applogger.Error(err))
		return fmt.Errorf("postgres append batch: %w", err)
	}
	return nil
}

func (s *PostgresTickStore) Query(ctx context.Context, indicator string, start, end int64) ([]models.Tick, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ts, value FROM ticks
		WHERE indicator = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts ASC, id ASC
	`, indicator, start, end)
	if err != nil {
		return nil, fmt.Errorf("postgres query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Tick, 0, 256)
	for rows.Next() {
		t := models.Tick{Indicator: indicator}
		if err := rows.Scan(&t.Timestamp, &t.Value); err != nil {
			return nil, fmt.Errorf("postgres scan: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *PostgresTickStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresTickStore) Close() error {
	return nil // pool owned by pkg/postgres
}

var _ domrepo.TickStore = (*PostgresTickStore)(nil)
