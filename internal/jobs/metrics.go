// Package jobs runs scheduled background work and reports on it.
package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricBackgroundJobsTotal      = "background_jobs_total"
	MetricBackgroundJobsDuration   = "background_jobs_duration_seconds"
	MetricBackgroundJobErrorsTotal = "background_job_errors_total"
)

// Label values for the job_type dimension.
const (
	JobTypeAggregationAudit = "aggregation_audit"
)

// Label values for the status dimension.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics tracks background job executions, durations, and errors.
// Safe for concurrent use.
type Metrics struct {
	jobsTotal    *prometheus.CounterVec
	jobsDuration *prometheus.HistogramVec
	jobErrors    *prometheus.CounterVec
}

// NewMetrics builds the job collectors. Nothing is registered until
// Register is called with a registry.
func NewMetrics() *Metrics {
	// Audit runs scan the whole aggregate table, so the buckets reach
	// well past the request-latency range.
	durationBuckets := []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 120.0}

	return &Metrics{
		jobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricBackgroundJobsTotal,
				Help: "Background job runs by job type and completion status",
			},
			[]string{"job_type", "status"},
		),
		jobsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricBackgroundJobsDuration,
				Help:    "Background job run duration in seconds by job type",
				Buckets: durationBuckets,
			},
			[]string{"job_type"},
		),
		jobErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricBackgroundJobErrorsTotal,
				Help: "Background job errors by job type and error class",
			},
			[]string{"job_type", "error_type"},
		),
	}
}

// Register adds every job collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncJobsTotal records one completed run of jobType with the given status.
func (m *Metrics) IncJobsTotal(jobType, status string) {
	m.jobsTotal.WithLabelValues(jobType, status).Inc()
}

// ObserveJobDuration records how long a run of jobType took.
func (m *Metrics) ObserveJobDuration(jobType string, seconds float64) {
	m.jobsDuration.WithLabelValues(jobType).Observe(seconds)
}

// IncJobErrors records one error of errorType for jobType.
func (m *Metrics) IncJobErrors(jobType, errorType string) {
	m.jobErrors.WithLabelValues(jobType, errorType).Inc()
}

// Collectors returns the underlying collectors for registration and tests.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.jobsTotal,
		m.jobsDuration,
		m.jobErrors,
	}
}
