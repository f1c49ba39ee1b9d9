package sources

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("source not found")

// Source is one listing site. Key selects the registered parser; unknown
// keys fall through to the generic extractor.
type Source struct {
	ID          int64
	Key         string
	DisplayName string
	URL         string
	Enabled     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Repository interface {
	List(ctx context.Context) ([]Source, error)
	ListEnabled(ctx context.Context) ([]Source, error)
	GetByID(ctx context.Context, id int64) (*Source, error)
	GetByKey(ctx context.Context, key string) (*Source, error)
	// UpsertByKey inserts or refreshes display name and URL; the enabled
	// flag is only set on insert so operator toggles survive reseeding.
	UpsertByKey(ctx context.Context, key, displayName, url string, enabled bool) (*Source, error)
}
