package venues

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("venue not found")
	ErrDuplicate = errors.New("venue already exists")
)

// Venue is a canonical competition location. Name is the canonical form
// after normalization; raw spellings from listing sites hang off it as
// aliases. Coordinates and distance are filled in lazily by the geocoder.
type Venue struct {
	ID            int64
	Name          string
	Postcode      string
	Latitude      *float64
	Longitude     *float64
	DistanceMiles *float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Alias maps one observed venue spelling to its canonical venue. Source
// records how the mapping was established: "seed" from the embedded seed
// data, "learned" from a postcode match at scan time.
type Alias struct {
	ID      int64
	Alias   string
	VenueID int64
	Source  string
}

type Repository interface {
	List(ctx context.Context) ([]Venue, error)
	GetByID(ctx context.Context, id int64) (*Venue, error)
	GetByName(ctx context.Context, name string) (*Venue, error)
	// Create returns ErrDuplicate when another venue already carries the
	// name; the caller re-reads the winner's row.
	Create(ctx context.Context, name, postcode string) (*Venue, error)
	ListAliases(ctx context.Context) ([]Alias, error)
	// UpsertAlias is a no-op when the alias already exists.
	UpsertAlias(ctx context.Context, alias string, venueID int64, source string) error
	// SetCoordinates writes coordinates only when the venue has none yet.
	// Reports whether the row changed.
	SetCoordinates(ctx context.Context, id int64, lat, lng float64) (bool, error)
	SetPostcode(ctx context.Context, id int64, postcode string) error
	SetDistance(ctx context.Context, id int64, miles float64) error
	// ListMissingDistance returns venues with coordinates but no computed
	// distance, for post-scan backfill.
	ListMissingDistance(ctx context.Context) ([]Venue, error)
	ClearDistances(ctx context.Context) error
}
