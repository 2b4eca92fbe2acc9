package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EndpointMetrics tracks latency and errors of the query endpoints that do
// downstream work (analysis, news).
type EndpointMetrics struct {
	latency *prometheus.HistogramVec
	errors  *prometheus.CounterVec
}

func NewEndpointMetrics(reg prometheus.Registerer) *EndpointMetrics {
	f := promauto.With(reg)
	return &EndpointMetrics{
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "macropulse",
				Subsystem: "api",
				Name:      "latency_seconds",
				Help:      "Latency of query endpoints",
				Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "macropulse",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Errors by query endpoint",
			},
			[]string{"endpoint"},
		),
	}
}

// Observe records one request. A nil receiver is a no-op.
func (m *EndpointMetrics) Observe(endpoint string, start time.Time, failed bool) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if failed {
		m.errors.WithLabelValues(endpoint).Inc()
	}
}
