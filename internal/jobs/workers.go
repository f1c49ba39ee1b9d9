package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"

	"github.com/equiscan/server/internal/domain/scans"
	"github.com/equiscan/server/internal/storage"
)

// ScanDispatchArgs fans out one scan per enabled source. Fired daily by the
// periodic schedule.
type ScanDispatchArgs struct{}

func (ScanDispatchArgs) Kind() string { return JobKindScanDispatch }

// ScanSourceArgs runs one scan. SourceID alone determines uniqueness so a
// source cannot have two scans queued or running at once; ScanID and Trigger
// ride along as payload.
type ScanSourceArgs struct {
	ScanID   int64  `json:"scan_id"`
	SourceID int64  `json:"source_id" river:"unique"`
	Trigger  string `json:"trigger"`
}

func (ScanSourceArgs) Kind() string { return JobKindScanSource }

func scanInsertOpts() *river.InsertOpts {
	return &river.InsertOpts{
		MaxAttempts: ScanSourceMaxAttempts,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			// Only live jobs block a duplicate. River's default state set
			// also includes completed, which would reject re-scans until
			// the job cleaner prunes the finished row.
			ByState: []rivertype.JobState{
				rivertype.JobStatePending,
				rivertype.JobStateScheduled,
				rivertype.JobStateAvailable,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
			},
		},
	}
}

// Inserter is the slice of the River client the enqueue path needs.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// EnqueueScan creates a pending scan row and queues the job that will run
// it. When the source already has a scan queued or running, the fresh row
// is failed immediately and ErrAlreadyQueued returned.
func EnqueueScan(ctx context.Context, client Inserter, repo scans.Repository, sourceID int64, trigger string) (*scans.Scan, error) {
	row, err := repo.Create(ctx, sourceID, trigger)
	if err != nil {
		return nil, fmt.Errorf("creating scan record: %w", err)
	}
	result, err := client.Insert(ctx, ScanSourceArgs{ScanID: row.ID, SourceID: sourceID, Trigger: trigger}, scanInsertOpts())
	if err != nil {
		return nil, fmt.Errorf("enqueueing scan %d: %w", row.ID, err)
	}
	if result.UniqueSkippedAsDuplicate {
		if err := repo.Fail(ctx, row.ID, scans.Counts{}, "source already has a scan queued"); err != nil {
			return nil, err
		}
		return row, ErrAlreadyQueued
	}
	return row, nil
}

var ErrAlreadyQueued = errors.New("scan already queued for source")

// ScanRunner is the orchestrator surface the worker needs.
type ScanRunner interface {
	Run(ctx context.Context, scanID, sourceID int64, trigger string) error
}

// ScanDispatchWorker enqueues one scan job per enabled source.
type ScanDispatchWorker struct {
	river.WorkerDefaults[ScanDispatchArgs]
	Repo   storage.Repository
	Logger zerolog.Logger
}

func (ScanDispatchWorker) Kind() string { return JobKindScanDispatch }

func (w ScanDispatchWorker) Work(ctx context.Context, _ *river.Job[ScanDispatchArgs]) error {
	client := river.ClientFromContext[pgx.Tx](ctx)
	if client == nil {
		return fmt.Errorf("river client missing from context")
	}
	enabled, err := w.Repo.Sources().ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("listing enabled sources: %w", err)
	}
	for _, source := range enabled {
		_, err := EnqueueScan(ctx, client, w.Repo.Scans(), source.ID, scans.TriggerScheduled)
		switch {
		case errors.Is(err, ErrAlreadyQueued):
			w.Logger.Warn().Str("source", source.Key).Msg("dispatch: scan still queued from previous run")
		case err != nil:
			// Keep dispatching the rest; one bad source must not block
			// the daily sweep.
			w.Logger.Error().Err(err).Str("source", source.Key).Msg("dispatch: enqueue failed")
		default:
			w.Logger.Info().Str("source", source.Key).Msg("dispatch: scan queued")
		}
	}
	return nil
}

// ScanSourceWorker runs one scan to completion. The runner records the
// terminal state itself; an error here means infrastructure trouble, and
// with MaxAttempts 1 the job lands in the dead queue for inspection.
type ScanSourceWorker struct {
	river.WorkerDefaults[ScanSourceArgs]
	Runner ScanRunner
}

func (ScanSourceWorker) Kind() string { return JobKindScanSource }

func (w ScanSourceWorker) Work(ctx context.Context, job *river.Job[ScanSourceArgs]) error {
	if w.Runner == nil {
		return fmt.Errorf("scan runner not configured")
	}
	return w.Runner.Run(ctx, job.Args.ScanID, job.Args.SourceID, job.Args.Trigger)
}

func NewWorkers(repo storage.Repository, runner ScanRunner, logger zerolog.Logger) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker[ScanDispatchArgs](workers, ScanDispatchWorker{Repo: repo, Logger: logger})
	river.AddWorker[ScanSourceArgs](workers, ScanSourceWorker{Runner: runner})
	return workers
}
