package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/equiscan/server/internal/domain/competitions"
	"github.com/equiscan/server/internal/domain/scans"
	"github.com/equiscan/server/internal/domain/settings"
	"github.com/equiscan/server/internal/domain/sources"
	"github.com/equiscan/server/internal/domain/venues"
	"github.com/equiscan/server/internal/storage"
)

// queryer abstracts pool vs transaction so every repository method runs
// against whichever the Repository is bound to.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

var _ storage.Repository = (*Repository)(nil)

func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres repository: pool is nil")
	}
	return &Repository{pool: pool}, nil
}

// NewPool connects and pings.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

func (r *Repository) Sources() sources.Repository {
	return &SourceRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Venues() venues.Repository {
	return &VenueRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Competitions() competitions.Repository {
	return &CompetitionRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Scans() scans.Repository {
	return &ScanRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Settings() settings.Repository {
	return &SettingsRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, storage.Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	wrapped := &Repository{pool: r.pool, tx: tx}
	if err := fn(ctx, wrapped); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type SourceRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

type VenueRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

type CompetitionRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

type ScanRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

type SettingsRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *SourceRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *VenueRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *CompetitionRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *ScanRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *SettingsRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}
