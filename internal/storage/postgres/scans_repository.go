package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/equiscan/server/internal/domain/scans"
)

var _ scans.Repository = (*ScanRepository)(nil)

const scanColumns = `id, source_id, status, triggered_by, events_found, events_upserted,
       events_skipped, competition_count, training_count, error, warning,
       started_at, finished_at, created_at`

func scanScan(row pgx.Row) (*scans.Scan, error) {
	var s scans.Scan
	err := row.Scan(&s.ID, &s.SourceID, &s.Status, &s.Trigger, &s.EventsFound,
		&s.EventsUpserted, &s.EventsSkipped, &s.CompetitionCount, &s.TrainingCount,
		&s.Error, &s.Warning, &s.StartedAt, &s.FinishedAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, scans.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning scan row: %w", err)
	}
	return &s, nil
}

func (r *ScanRepository) Create(ctx context.Context, sourceID int64, trigger string) (*scans.Scan, error) {
	return scanScan(r.queryer().QueryRow(ctx, `
INSERT INTO scans (source_id, triggered_by) VALUES ($1, $2)
RETURNING `+scanColumns,
		sourceID, trigger))
}

func (r *ScanRepository) GetByID(ctx context.Context, id int64) (*scans.Scan, error) {
	return scanScan(r.queryer().QueryRow(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE id = $1`, id))
}

func (r *ScanRepository) MarkRunning(ctx context.Context, id int64) error {
	_, err := r.queryer().Exec(ctx, `
UPDATE scans SET status = 'running', started_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("marking scan %d running: %w", id, err)
	}
	return nil
}

func (r *ScanRepository) Complete(ctx context.Context, id int64, counts scans.Counts, warning string) error {
	return r.finish(ctx, id, scans.StatusCompleted, counts, "", warning)
}

func (r *ScanRepository) Fail(ctx context.Context, id int64, counts scans.Counts, reason string) error {
	return r.finish(ctx, id, scans.StatusFailed, counts, reason, "")
}

func (r *ScanRepository) finish(ctx context.Context, id int64, status string, counts scans.Counts, errMsg, warning string) error {
	_, err := r.queryer().Exec(ctx, `
UPDATE scans
   SET status = $2, events_found = $3, events_upserted = $4, events_skipped = $5,
       competition_count = $6, training_count = $7,
       error = $8, warning = $9, finished_at = now()
 WHERE id = $1`,
		id, status, counts.Found, counts.Upserted, counts.Skipped,
		counts.Competitions, counts.Training, errMsg, warning)
	if err != nil {
		return fmt.Errorf("finishing scan %d: %w", id, err)
	}
	return nil
}

func (r *ScanRepository) ListBySource(ctx context.Context, sourceID int64, limit int) ([]scans.Scan, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.queryer().Query(ctx, `
SELECT `+scanColumns+` FROM scans
 WHERE source_id = $1
 ORDER BY created_at DESC
 LIMIT $2`,
		sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	defer rows.Close()

	var out []scans.Scan
	for rows.Next() {
		s, err := scanScan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *ScanRepository) LatestCompleted(ctx context.Context, sourceID int64) (*scans.Scan, error) {
	return scanScan(r.queryer().QueryRow(ctx, `
SELECT `+scanColumns+` FROM scans
 WHERE source_id = $1 AND status = 'completed'
 ORDER BY finished_at DESC
 LIMIT 1`,
		sourceID))
}

func (r *ScanRepository) FailStale(ctx context.Context, reason string) (int64, error) {
	tag, err := r.queryer().Exec(ctx, `
UPDATE scans
   SET status = 'failed', error = $1, finished_at = now()
 WHERE status IN ('pending', 'running')`,
		reason)
	if err != nil {
		return 0, fmt.Errorf("failing stale scans: %w", err)
	}
	return tag.RowsAffected(), nil
}
