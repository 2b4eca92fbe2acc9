package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development staging production"`

	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		DisableCORS     bool          `yaml:"disable_cors"`
		ClientRate      float64       `yaml:"client_rate" default:"1" validate:"gt=0"`
		ClientBurst     int           `yaml:"client_burst" default:"5" validate:"gte=1"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`

	Collector struct {
		Interval     time.Duration       `yaml:"interval" default:"10s" validate:"gt=0"`
		FetchTimeout time.Duration       `yaml:"fetch_timeout" default:"8s" validate:"gt=0"`
		Indicators   []IndicatorSource   `yaml:"indicators" validate:"required,min=1,dive"`
		Computed     []ComputedIndicator `yaml:"computed" validate:"dive"`
	} `yaml:"collector"`

	Sources struct {
		Timeout   time.Duration `yaml:"timeout" default:"10s"`
		RateLimit float64       `yaml:"rate_limit" default:"5"`
		Burst     int           `yaml:"burst" default:"5"`
		UserAgent string        `yaml:"user_agent" default:"Mozilla/5.0 (compatible; macropulse/1.0)"`
	} `yaml:"sources"`

	Store struct {
		Backend string `yaml:"backend" default:"sqlite" validate:"oneof=memory sqlite clickhouse postgres"`
		SQLite  struct {
			Path        string `yaml:"path" default:"data/ticks.db"`
			BusyTimeout int    `yaml:"busy_timeout_ms" default:"5000"`
		} `yaml:"sqlite"`
		ClickHouse struct {
			Host           string        `yaml:"host" default:"localhost"`
			Port           int           `yaml:"port" default:"9000"`
			Database       string        `yaml:"database" default:"macropulse"`
			User           string        `yaml:"user" default:"default"`
			Password       string        `yaml:"password"`
			UseHTTP        bool          `yaml:"use_http"`
			DialTimeout    time.Duration `yaml:"dial_timeout" default:"5s"`
			ConnectTimeout time.Duration `yaml:"connect_timeout" default:"30s"`
		} `yaml:"clickhouse"`
		Postgres struct {
			DSN            string        `yaml:"dsn"`
			MaxConns       int32         `yaml:"max_conns" default:"8"`
			ConnectTimeout time.Duration `yaml:"connect_timeout" default:"30s"`
		} `yaml:"postgres"`
	} `yaml:"store"`

	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"macro.ticks"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"snappy" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"macropulse"`
	} `yaml:"redis"`

	Analysis struct {
		TTL      time.Duration `yaml:"ttl" default:"30m" validate:"gt=0"`
		Cooldown time.Duration `yaml:"cooldown" default:"60s" validate:"gte=0"`
		Timeout  time.Duration `yaml:"timeout" default:"45s" validate:"gt=0"`
		Fine     Window        `yaml:"fine"`
		Coarse   Window        `yaml:"coarse"`
		OpenAI   struct {
			APIKey      string  `yaml:"api_key"`
			BaseURL     string  `yaml:"base_url"`
			Model       string  `yaml:"model" default:"gpt-4o-mini"`
			MaxTokens   int     `yaml:"max_tokens" default:"600"`
			Temperature float32 `yaml:"temperature" default:"0.3"`
		} `yaml:"openai"`
	} `yaml:"analysis"`

	News struct {
		Feeds    []string      `yaml:"feeds"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"5m"`
		Limit    int           `yaml:"limit" default:"20"`
	} `yaml:"news"`

	Reserves struct {
		Path string `yaml:"path" default:"data/reserves.json"`
	} `yaml:"reserves"`
}

// IndicatorSource describes where one primary indicator is read from.
type IndicatorSource struct {
	Symbol  string            `yaml:"symbol" validate:"required"`
	URL     string            `yaml:"url" validate:"required,url"`
	Extract string            `yaml:"extract" default:"json" validate:"oneof=json regex"`
	Path    string            `yaml:"path" validate:"required_if=Extract json"`
	Pattern string            `yaml:"pattern" validate:"required_if=Extract regex"`
	Scale   float64           `yaml:"scale" default:"1"`
	Headers map[string]string `yaml:"headers"`
}

// ComputedIndicator is Minuend - Subtrahend.
type ComputedIndicator struct {
	Symbol     string `yaml:"symbol" validate:"required"`
	Minuend    string `yaml:"minuend" validate:"required"`
	Subtrahend string `yaml:"subtrahend" validate:"required"`
}

// Window is a bucket width / range pair in span notation ("1m", "7d").
type Window struct {
	Interval string `yaml:"interval"`
	Range    string `yaml:"range"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.applyDefaults(); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (if present), then the YAML file, then applies
// environment overrides and re-validates.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyDefaults() error {
	if err := defaults.Set(c); err != nil {
		return err
	}
	for i := range c.Collector.Indicators {
		if err := defaults.Set(&c.Collector.Indicators[i]); err != nil {
			return err
		}
	}
	if c.Analysis.Fine.Interval == "" {
		c.Analysis.Fine = Window{Interval: "1m", Range: "1h"}
	}
	if c.Analysis.Coarse.Interval == "" {
		c.Analysis.Coarse = Window{Interval: "1h", Range: "7d"}
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("OPENAI_API_KEY"); v != "" {
		c.Analysis.OpenAI.APIKey = v
	}
	if v := getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := getenv("POSTGRES_DSN"); v != "" {
		c.Store.Postgres.DSN = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = p
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	known := make(map[string]struct{}, len(c.Collector.Indicators))
	for _, ind := range c.Collector.Indicators {
		if _, dup := known[ind.Symbol]; dup {
			return fmt.Errorf("collector.indicators: duplicate symbol %q", ind.Symbol)
		}
		known[ind.Symbol] = struct{}{}
	}
	for _, ci := range c.Collector.Computed {
		for _, in := range []string{ci.Minuend, ci.Subtrahend} {
			if _, ok := known[in]; !ok {
				return fmt.Errorf("collector.computed %s: unknown input %q", ci.Symbol, in)
			}
		}
		if _, dup := known[ci.Symbol]; dup {
			return fmt.Errorf("collector.computed: symbol %q already defined", ci.Symbol)
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if c.Store.Backend == "postgres" && c.Store.Postgres.DSN == "" {
		return fmt.Errorf("store.postgres.dsn is required for the postgres backend")
	}
	return nil
}
