package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricFeedbackProcessed = "feedback_processed_total"
	MetricFeedbackRejected  = "feedback_rejected_total"
	MetricProcessDuration   = "feedback_process_duration_seconds"
)

// Metrics contains Prometheus metrics for feedback processing.
// All operations are thread-safe.
type Metrics struct {
	processed       prometheus.Counter
	rejected        prometheus.Counter
	processDuration prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricFeedbackProcessed,
			Help: "Total number of feedback submissions processed",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricFeedbackRejected,
			Help: "Total number of feedback submissions rejected at validation",
		}),
		processDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricProcessDuration,
			Help:    "Histogram of end-to-end feedback processing duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncProcessed increments the processed submission counter.
func (m *Metrics) IncProcessed() {
	m.processed.Inc()
}

// IncRejected increments the rejected submission counter.
func (m *Metrics) IncRejected() {
	m.rejected.Inc()
}

// ObserveProcessDuration records a processing duration sample.
func (m *Metrics) ObserveProcessDuration(seconds float64) {
	m.processDuration.Observe(seconds)
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.processed,
		m.rejected,
		m.processDuration,
	}
}
