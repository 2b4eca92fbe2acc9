package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	applogger "MacroPulse/pkg/logger"
)

// SQLiteSchema creates the tick table and its range-scan index.
var SQLiteSchema = []string{
	`CREATE TABLE IF NOT EXISTS ticks (
		ts        INTEGER NOT NULL,
		indicator TEXT    NOT NULL,
		value     REAL    NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ticks_ts_indicator ON ticks (ts, indicator)`,
	`CREATE INDEX IF NOT EXISTS idx_ticks_indicator_ts ON ticks (indicator, ts)`,
}

// SQLiteTickStore implements TickStore on SQLite. Batches are written in a
// single transaction so readers see all of a cycle or none of it.
type SQLiteTickStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewSQLiteTickStore(db *sql.DB, l *applogger.Logger) *SQLiteTickStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &SQLiteTickStore{db: db, l: l}
}

func (s *SQLiteTickStore) Append(ctx context.Context, ts int64, indicator string, value float64) error {
	if !isFinite(value) {
		return fmt.Errorf("append %s@%d: %w", indicator, ts, domrepo.ErrInvalidValue)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO ticks (ts, indicator, value) VALUES (?, ?, ?)`, ts, indicator, value); err != nil {
		return fmt.Errorf("sqlite append: %w", err)
	}
	return nil
}

func (s *SQLiteTickStore) AppendBatch(ctx context.Context, ts int64, values map[string]float64) error {
	ticks := finiteTicks(ts, values)
	if len(ticks) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ticks (ts, indicator, value) VALUES (?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range ticks {
		if _, err := stmt.ExecContext(ctx, t.Timestamp, t.Indicator, t.Value); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite insert %s: %w", t.Indicator, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	s.l.Debug("sqlite append_batch ok",
		applogger.Int64("ts", ts),
		applogger.Int("rows", len(ticks)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *SQLiteTickStore) Query(ctx context.Context, indicator string, start, end int64) ([]models.Tick, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, value FROM ticks
		WHERE indicator = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC, rowid ASC
	`, indicator, start, end)
	if err != nil {
		s.l.Error("sqlite query error", applogger.String("indicator", indicator), applogger.Error(err))
		return nil, fmt.Errorf("sqlite query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Tick, 0, 256)
	for rows.Next() {
		t := models.Tick{Indicator: indicator}
		if err := rows.Scan(&t.Timestamp, &t.Value); err != nil {
			return nil, fmt.Errorf("sqlite scan: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteTickStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteTickStore) Close() error {
	return nil // connection owned by pkg/sqlite
}

var _ domrepo.TickStore = (*SQLiteTickStore)(nil)
