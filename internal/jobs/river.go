// Package jobs wires the scan pipeline into River: a daily dispatch job
// fans out one scan job per enabled source, and scan jobs drive the
// orchestrator. Queue state lives in Postgres next to the data it feeds.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/riverqueue/river/rivertype"
)

const (
	JobKindScanDispatch = "scan_dispatch"
	JobKindScanSource   = "scan_source"
)

const (
	// A failed scan is already recorded in the scans table and retried by
	// the next dispatch; replaying the job would double-record it.
	ScanSourceMaxAttempts = 1
	DispatchMaxAttempts   = 3
)

// RetryConfig controls per-kind retry behavior.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryPolicy implements River's ClientRetryPolicy with per-kind
// exponential backoff.
type RetryPolicy struct {
	Default RetryConfig
	ByKind  map[string]RetryConfig
}

func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		Default: RetryConfig{
			MaxAttempts: DispatchMaxAttempts,
			BaseDelay:   30 * time.Second,
			MaxDelay:    10 * time.Minute,
		},
		ByKind: map[string]RetryConfig{
			JobKindScanSource: {
				MaxAttempts: ScanSourceMaxAttempts,
			},
			JobKindScanDispatch: {
				MaxAttempts: DispatchMaxAttempts,
				BaseDelay:   1 * time.Minute,
				MaxDelay:    10 * time.Minute,
			},
		},
	}
}

// NextRetry determines the next retry time for a failed job.
func (p *RetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	config := p.configFor(job.Kind)
	if config.BaseDelay == 0 {
		return time.Now()
	}

	attempt := job.Attempt
	if attempt < 1 {
		attempt = 1
	}

	delay := time.Duration(float64(config.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	if job.AttemptedAt != nil {
		return job.AttemptedAt.Add(delay)
	}
	return time.Now().Add(delay)
}

func (p *RetryPolicy) configFor(kind string) RetryConfig {
	if p == nil {
		return RetryConfig{MaxAttempts: DispatchMaxAttempts, BaseDelay: 30 * time.Second, MaxDelay: 10 * time.Minute}
	}
	if config, ok := p.ByKind[kind]; ok {
		return config
	}
	return p.Default
}

// NewClientConfig builds a River client configuration. concurrency bounds
// simultaneous source scans; listing sites are rate limited per host, but
// one slow site must not serialize everything behind it.
func NewClientConfig(workers *river.Workers, logger *slog.Logger, concurrency int, periodicJobs []*river.PeriodicJob) *river.Config {
	if concurrency < 1 {
		concurrency = 1
	}
	policy := NewRetryPolicy()
	config := &river.Config{
		Workers:      workers,
		RetryPolicy:  policy,
		MaxAttempts:  policy.Default.MaxAttempts,
		PeriodicJobs: periodicJobs,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: concurrency},
		},
	}
	if logger != nil {
		config.Logger = logger
	}
	return config
}

// NewClient creates a River client using pgx v5.
func NewClient(pool *pgxpool.Pool, workers *river.Workers, logger *slog.Logger, concurrency int, periodicJobs []*river.PeriodicJob) (*river.Client[pgx.Tx], error) {
	return river.NewClient(riverpgxv5.New(pool), NewClientConfig(workers, logger, concurrency, periodicJobs))
}

// Migrate applies River's own schema migrations. Run before the client
// starts; the application migrations do not cover River's tables.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("creating river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("applying river migrations: %w", err)
	}
	return nil
}

// dailySchedule fires once a day at a fixed local wall-clock time.
type dailySchedule struct {
	hour, minute int
}

func (s dailySchedule) Next(after time.Time) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), s.hour, s.minute, 0, 0, after.Location())
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// NewPeriodicJobs builds the schedule: one dispatch per day at the
// configured "HH:MM" time. The schedule string is validated at config
// load; a malformed value here falls back to 06:00.
func NewPeriodicJobs(schedule string) []*river.PeriodicJob {
	var hour, minute int
	if _, err := fmt.Sscanf(schedule, "%d:%d", &hour, &minute); err != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		hour, minute = 6, 0
	}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			dailySchedule{hour: hour, minute: minute},
			func() (river.JobArgs, *river.InsertOpts) {
				return ScanDispatchArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: false},
		),
	}
}
