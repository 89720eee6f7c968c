package validation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/jobs"
)

// DefaultAuditInterval is the default duration between audit cycles.
const DefaultAuditInterval = 10 * time.Minute

// DefaultAuditTimeout is the default timeout for a single audit cycle.
const DefaultAuditTimeout = 30 * time.Second

// AuditJobConfig configures the periodic aggregation audit job.
type AuditJobConfig struct {
	// Interval is the duration between audit cycles.
	Interval time.Duration
	// Logger for job activity.
	Logger *slog.Logger
	// Timeout for each audit cycle.
	Timeout time.Duration
	// Metrics for job instrumentation. Optional.
	Metrics *jobs.Metrics
}

// AuditJob periodically runs the system-wide aggregation validation
// and logs the resulting report.
type AuditJob struct {
	config    AuditJobConfig
	validator *Validator

	mu         sync.Mutex
	running    bool
	stopCh     chan struct{}
	doneCh     chan struct{}
	lastReport *SystemReport
}

// NewAuditJob creates a periodic aggregation audit job.
func NewAuditJob(config AuditJobConfig, validator *Validator) *AuditJob {
	if config.Interval == 0 {
		config.Interval = DefaultAuditInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultAuditTimeout
	}

	return &AuditJob{
		config:    config,
		validator: validator,
	}
}

// Start begins the periodic audit job.
// Returns immediately; the job runs in a background goroutine.
func (j *AuditJob) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	go j.run(ctx)
	return nil
}

// Stop signals the audit job to stop and waits for it to finish.
func (j *AuditJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	stopCh := j.stopCh
	doneCh := j.doneCh
	j.mu.Unlock()

	close(stopCh)
	<-doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

// IsRunning returns whether the job is currently running.
func (j *AuditJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// LastReport returns the most recent system report, or nil if no cycle
// has completed yet.
func (j *AuditJob) LastReport() *SystemReport {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastReport
}

func (j *AuditJob) run(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.config.Logger.Info("aggregation audit job stopping due to context cancellation")
			return
		case <-j.stopCh:
			j.config.Logger.Info("aggregation audit job stopping due to stop signal")
			return
		case <-ticker.C:
			j.runCycle(ctx)
		}
	}
}

// RunOnce executes a single audit cycle immediately. Useful for
// triggering an audit from an operator endpoint.
func (j *AuditJob) RunOnce(ctx context.Context) *SystemReport {
	return j.runCycle(ctx)
}

func (j *AuditJob) runCycle(parentCtx context.Context) *SystemReport {
	ctx, cancel := context.WithTimeout(parentCtx, j.config.Timeout)
	defer cancel()

	start := time.Now()
	report := j.validator.ValidateSystem(ctx)

	j.mu.Lock()
	j.lastReport = report
	j.mu.Unlock()

	if j.config.Metrics != nil {
		status := jobs.StatusSuccess
		if ctx.Err() != nil {
			status = jobs.StatusFailure
			j.config.Metrics.IncJobErrors(jobs.JobTypeAggregationAudit, "timeout")
		}
		j.config.Metrics.IncJobsTotal(jobs.JobTypeAggregationAudit, status)
		j.config.Metrics.ObserveJobDuration(jobs.JobTypeAggregationAudit, time.Since(start).Seconds())
	}

	if report.DuplicatesDetected || report.CorruptedRecords > 0 || report.UsersWithDiscrepancy > 0 {
		j.config.Logger.Warn("aggregation audit found issues",
			slog.Bool("duplicates", report.DuplicatesDetected),
			slog.Int("corrupted_records", report.CorruptedRecords),
			slog.Int("users_with_discrepancy", report.UsersWithDiscrepancy),
			slog.Duration("duration", time.Since(start)))
	}

	return report
}
