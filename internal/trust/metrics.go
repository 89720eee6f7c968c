package trust

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricRecalcTotal    = "trust_recalculations_total"
	MetricRecalcErrors   = "trust_recalculation_errors_total"
	MetricRecalcDuration = "trust_recalculation_duration_seconds"
)

// Metrics contains Prometheus metrics for trust score recalculation.
// All operations are thread-safe.
type Metrics struct {
	recalcTotal    prometheus.Counter
	recalcErrors   prometheus.Counter
	recalcDuration prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		recalcTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRecalcTotal,
			Help: "Total number of trust score recalculations",
		}),
		recalcErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRecalcErrors,
			Help: "Total number of trust score recalculation errors",
		}),
		recalcDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRecalcDuration,
			Help:    "Histogram of trust score recalculation duration in seconds",
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

// IncRecalcTotal increments the recalculation counter.
func (m *Metrics) IncRecalcTotal() {
	m.recalcTotal.Inc()
}

// IncRecalcErrors increments the recalculation error counter.
func (m *Metrics) IncRecalcErrors() {
	m.recalcErrors.Inc()
}

// ObserveRecalcDuration records a recalculation duration sample.
func (m *Metrics) ObserveRecalcDuration(seconds float64) {
	m.recalcDuration.Observe(seconds)
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.recalcTotal,
		m.recalcErrors,
		m.recalcDuration,
	}
}
