package scans

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("scan not found")

// Scan statuses. A scan is created pending, moves to running when a worker
// picks it up, and ends in exactly one terminal state.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Triggers.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// Scan records one ingestion run against one source.
type Scan struct {
	ID             int64
	SourceID       int64
	Status         string
	Trigger        string
	EventsFound    int
	EventsUpserted int
	EventsSkipped  int
	// CompetitionCount and TrainingCount split the upserted events by
	// classification.
	CompetitionCount int
	TrainingCount    int
	Error            string
	Warning          string
	StartedAt        *time.Time
	FinishedAt       *time.Time
	CreatedAt        time.Time
}

// Counts are the per-scan tallies written at completion. Competitions and
// Training partition Upserted by classification.
type Counts struct {
	Found        int
	Upserted     int
	Skipped      int
	Competitions int
	Training     int
}

type Repository interface {
	Create(ctx context.Context, sourceID int64, trigger string) (*Scan, error)
	GetByID(ctx context.Context, id int64) (*Scan, error)
	MarkRunning(ctx context.Context, id int64) error
	Complete(ctx context.Context, id int64, counts Counts, warning string) error
	Fail(ctx context.Context, id int64, counts Counts, reason string) error
	ListBySource(ctx context.Context, sourceID int64, limit int) ([]Scan, error)
	// LatestCompleted returns the most recent completed scan for the
	// source, for the zero-events threshold check. ErrNotFound when none.
	LatestCompleted(ctx context.Context, sourceID int64) (*Scan, error)
	// FailStale marks scans stuck in pending or running as failed. Run at
	// startup; rows left behind by a crashed process never finish.
	FailStale(ctx context.Context, reason string) (int64, error)
}
