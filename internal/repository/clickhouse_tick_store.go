package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	applogger "MacroPulse/pkg/logger"
)

// ClickHouseSchema returns DDL for the tick table in the given database.
func ClickHouseSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.ticks (
			ts        DateTime64(3, 'UTC'),
			indicator LowCardinality(String),
			value     Float64
		) ENGINE = MergeTree
		ORDER BY (indicator, ts)`, database),
	}
}

// ClickHouseTickStore implements TickStore for ClickHouse. A batch is sent as
// one multi-row INSERT, which ClickHouse applies as a single block.
type ClickHouseTickStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewClickHouseTickStore creates ClickHouse storage.
func NewClickHouseTickStore(db *sql.DB, table string, l *applogger.Logger) *ClickHouseTickStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseTickStore{db: db, table: table, l: l}
}

func (s *ClickHouseTickStore) Append(ctx context.Context, ts int64, indicator string, value float64) error {
	if !isFinite(value) {
		return fmt.Errorf("append %s@%d: %w", indicator, ts, domrepo.ErrInvalidValue)
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, indicator, value) VALUES (?, ?, ?)", s.table)
	if _, err := s.db.ExecContext(ctx, q, time.UnixMilli(ts).UTC(), indicator, value); err != nil {
		return fmt.Errorf("clickhouse append: %w", err)
	}
	return nil
}

func (s *ClickHouseTickStore) AppendBatch(ctx context.Context, ts int64, values map[string]float64) error {
	ticks := finiteTicks(ts, values)
	if len(ticks) == 0 {
		return nil
	}
	start := time.Now()

	rows := make([]string, 0, len(ticks))
	args := make([]interface{}, 0, len(ticks)*3)
	at := time.UnixMilli(ts).UTC()
	for _, t := range ticks {
		rows = append(rows, "(?, ?, ?)")
		args = append(args, at, t.Indicator, t.Value)
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, indicator, value) VALUES %s", s.table, strings.Join(rows, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.l.Error("clickhouse append_batch error", applogger.Int64("ts", ts), applogger.Error(err))
		return fmt.Errorf("clickhouse append batch: %w", err)
	}
	s.l.Debug("clickhouse append_batch ok",
		applogger.Int64("ts", ts),
		applogger.Int("rows", len(ticks)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *ClickHouseTickStore) Query(ctx context.Context, indicator string, start, end int64) ([]models.Tick, error) {
	began := time.Now()
	q := fmt.Sprintf(`
		SELECT ts, value
		FROM %s
		WHERE indicator = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`, s.table)
	rows, err := s.db.QueryContext(ctx, q, indicator, time.UnixMilli(start).UTC(), time.UnixMilli(end).UTC())
	if err != nil {
		s.l.Error("clickhouse query error",
			applogger.String("table", s.table),
			applogger.String("indicator", indicator),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("clickhouse query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Tick, 0, 1024)
	for rows.Next() {
		var at time.Time
		t := models.Tick{Indicator: indicator}
		if err := rows.Scan(&at, &t.Value); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		t.Timestamp = at.UnixMilli()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse query ok",
		applogger.String("indicator", indicator),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(began)),
	)
	return out, nil
}

func (s *ClickHouseTickStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseTickStore) Close() error {
	return nil // Managed by pkg
}

var _ domrepo.TickStore = (*ClickHouseTickStore)(nil)
