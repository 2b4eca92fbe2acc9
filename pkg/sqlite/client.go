package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds SQLite configuration.
type ClientConfig struct {
	Path         string
	MaxOpenConns int
	BusyTimeout  int // milliseconds
}

// WithPath sets the database file path. ":memory:" is allowed.
func WithPath(path string) ClientOption {
	return func(c *ClientConfig) {
		c.Path = path
	}
}

// WithMaxOpenConns caps the connection pool.
func WithMaxOpenConns(n int) ClientOption {
	return func(c *ClientConfig) {
		if n > 0 {
			c.MaxOpenConns = n
		}
	}
}

// WithBusyTimeout sets how long a writer waits on a locked database.
func WithBusyTimeout(ms int) ClientOption {
	return func(c *ClientConfig) {
		if ms > 0 {
			c.BusyTimeout = ms
		}
	}
}

// Client wraps a WAL-mode SQLite database.
type Client struct {
	db *sql.DB
}

// NewClient opens the database, creating parent directories as needed.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := &ClientConfig{
		Path:         "data/ticks.db",
		MaxOpenConns: 4,
		BusyTimeout:  5000,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite mkdir: %w", err)
			}
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=%d", cfg.Path, cfg.BusyTimeout)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	maxConns := cfg.MaxOpenConns
	if cfg.Path == ":memory:" {
		// every connection to :memory: is a separate database
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	return &Client{db: db}, nil
}

// DB returns *sql.DB for direct use.
func (c *Client) DB() *sql.DB {
	return c.db
}

// InitSchema runs idempotent DDL statements.
func (c *Client) InitSchema(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
