package config

import (
	"strings"
	"testing"
	"time"
)

const minimal = `
collector:
  indicators:
    - symbol: US10Y
      url: https://example.com/us
      path: value
    - symbol: KR10Y
      url: https://example.com/kr
      extract: regex
      pattern: '([0-9.]+)'
  computed:
    - symbol: KRUS_SPREAD
      minuend: KR10Y
      subtrahend: US10Y
`

func TestParse_AppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Collector.Interval != 10*time.Second {
		t.Fatalf("interval=%v", c.Collector.Interval)
	}
	if c.Store.Backend != "sqlite" {
		t.Fatalf("backend=%q", c.Store.Backend)
	}
	if c.Analysis.Cooldown != time.Minute || c.Analysis.TTL != 30*time.Minute {
		t.Fatalf("analysis=%+v", c.Analysis)
	}
	if c.Collector.Indicators[0].Extract != "json" || c.Collector.Indicators[0].Scale != 1 {
		t.Fatalf("indicator defaults not applied: %+v", c.Collector.Indicators[0])
	}
	if c.Analysis.Coarse.Range != "7d" || c.Analysis.Fine.Interval != "1m" {
		t.Fatalf("windows=%+v %+v", c.Analysis.Fine, c.Analysis.Coarse)
	}
}

func TestParse_RejectsUnknownComputedInput(t *testing.T) {
	bad := strings.Replace(minimal, "subtrahend: US10Y", "subtrahend: JP10Y", 1)
	if _, err := Parse([]byte(bad)); err == nil || !strings.Contains(err.Error(), "JP10Y") {
		t.Fatalf("err=%v", err)
	}
}

func TestParse_RejectsBadBackend(t *testing.T) {
	if _, err := Parse([]byte(minimal + "store:\n  backend: mongo\n")); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParse_RejectsNonPositiveClientRate(t *testing.T) {
	for _, extra := range []string{
		"server:\n  client_rate: -1\n",
		"server:\n  client_burst: -2\n",
	} {
		if _, err := Parse([]byte(minimal + extra)); err == nil {
			t.Fatalf("%q: expected validation error", extra)
		}
	}
}

func TestParse_RegexNeedsPattern(t *testing.T) {
	bad := strings.Replace(minimal, "      pattern: '([0-9.]+)'\n", "", 1)
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatalf("expected required_if error")
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	env := map[string]string{
		"STORE_BACKEND":  "memory",
		"KAFKA_BROKERS":  "k1:9092,k2:9092",
		"HTTP_PORT":      "9090",
		"OPENAI_API_KEY": "sk-test",
	}
	if err := c.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("env: %v", err)
	}
	if c.Store.Backend != "memory" || c.Server.Port != 9090 || c.Analysis.OpenAI.APIKey != "sk-test" {
		t.Fatalf("overrides not applied: %+v", c)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("kafka=%+v", c.Kafka)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate after env: %v", err)
	}

	if err := c.applyEnv(func(k string) string {
		if k == "HTTP_PORT" {
			return "eighty"
		}
		return ""
	}); err == nil {
		t.Fatalf("expected HTTP_PORT error")
	}
}
