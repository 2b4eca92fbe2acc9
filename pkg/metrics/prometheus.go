package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycles      *prometheus.CounterVec
	skipped     prometheus.Counter
	fetchErrors *prometheus.CounterVec
	lastValue   *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
	analysis    *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropulse_collection_cycles_total",
				Help: "Completed collection cycles by resulting snapshot status",
			},
			[]string{"status"},
		),
		skipped: f.NewCounter(
			prometheus.CounterOpts{
				Name: "macropulse_collection_cycles_skipped_total",
				Help: "Ticks skipped because the previous cycle was still running",
			},
		),
		fetchErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropulse_fetch_errors_total",
				Help: "Failed indicator fetches",
			},
			[]string{"indicator"},
		),
		lastValue: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "macropulse_indicator_value",
				Help: "Last collected value per indicator",
			},
			[]string{"indicator"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "macropulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		analysis: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropulse_analysis_results_total",
				Help: "Analysis requests by outcome",
			},
			[]string{"status"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordCycle counts a finished collection cycle.
func (r *Recorder) RecordCycle(status string) {
	r.cycles.WithLabelValues(status).Inc()
}

// RecordSkippedCycle counts a tick dropped by the overlap guard.
func (r *Recorder) RecordSkippedCycle() {
	r.skipped.Inc()
}

func (r *Recorder) RecordFetchError(indicator string) {
	r.fetchErrors.WithLabelValues(indicator).Inc()
}

func (r *Recorder) RecordLastValue(indicator string, value float64) {
	r.lastValue.WithLabelValues(indicator).Set(value)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordAnalysis(status string) {
	r.analysis.WithLabelValues(status).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// Nop discards everything. Used where metrics are not wired, mostly tests.
type Nop struct{}

func (Nop) RecordCycle(string)              {}
func (Nop) RecordSkippedCycle()             {}
func (Nop) RecordFetchError(string)         {}
func (Nop) RecordLastValue(string, float64) {}
func (Nop) RecordLatency(string, float64)   {}
func (Nop) RecordAnalysis(string)           {}
func (Nop) RecordError(string)              {}
