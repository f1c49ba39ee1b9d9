package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/equiscan/server/internal/domain/sources"
)

var _ sources.Repository = (*SourceRepository)(nil)

const sourceColumns = `id, key, display_name, url, enabled, created_at, updated_at`

func scanSource(row pgx.Row) (*sources.Source, error) {
	var s sources.Source
	err := row.Scan(&s.ID, &s.Key, &s.DisplayName, &s.URL, &s.Enabled, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sources.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning source: %w", err)
	}
	return &s, nil
}

func (r *SourceRepository) List(ctx context.Context) ([]sources.Source, error) {
	return r.list(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY key`)
}

func (r *SourceRepository) ListEnabled(ctx context.Context) ([]sources.Source, error) {
	return r.list(ctx, `SELECT `+sourceColumns+` FROM sources WHERE enabled ORDER BY key`)
}

func (r *SourceRepository) list(ctx context.Context, sql string) ([]sources.Source, error) {
	rows, err := r.queryer().Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var out []sources.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *SourceRepository) GetByID(ctx context.Context, id int64) (*sources.Source, error) {
	return scanSource(r.queryer().QueryRow(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE id = $1`, id))
}

func (r *SourceRepository) GetByKey(ctx context.Context, key string) (*sources.Source, error) {
	return scanSource(r.queryer().QueryRow(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE key = $1`, key))
}

func (r *SourceRepository) UpsertByKey(ctx context.Context, key, displayName, url string, enabled bool) (*sources.Source, error) {
	return scanSource(r.queryer().QueryRow(ctx, `
INSERT INTO sources (key, display_name, url, enabled)
VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE
   SET display_name = EXCLUDED.display_name,
       url = EXCLUDED.url,
       updated_at = now()
RETURNING `+sourceColumns,
		key, displayName, url, enabled))
}
