package storage

import (
	"context"

	"github.com/equiscan/server/internal/domain/competitions"
	"github.com/equiscan/server/internal/domain/scans"
	"github.com/equiscan/server/internal/domain/settings"
	"github.com/equiscan/server/internal/domain/sources"
	"github.com/equiscan/server/internal/domain/venues"
)

// Repository groups data access by domain.
type Repository interface {
	Sources() sources.Repository
	Venues() venues.Repository
	Competitions() competitions.Repository
	Scans() scans.Repository
	Settings() settings.Repository

	// WithTx runs fn against a Repository bound to a single transaction,
	// committing on nil and rolling back on error. The orchestrator uses
	// this for its per-event transaction boundary.
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
}
