package competitions

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("competition not found")

// Competition is one stored listing. Identity for dedup purposes is
// (SourceID, Name, DateStart, VenueID); re-observing the same identity
// refreshes the mutable fields and advances LastSeenAt.
type Competition struct {
	ID             int64
	SourceID       int64
	Name           string
	DateStart      time.Time
	DateEnd        *time.Time
	VenueID        int64
	Discipline     string
	IsCompetition  bool
	HasPonyClasses bool
	Classes        []string
	URL            string
	Description    string
	RawExtract     []byte
	FirstSeenAt    time.Time
	LastSeenAt     time.Time
}

// UpsertParams carries everything the dedup upsert needs. RawExtract is the
// parser's original record, kept verbatim for backfills and debugging.
type UpsertParams struct {
	SourceID       int64
	Name           string
	DateStart      time.Time
	DateEnd        *time.Time
	VenueID        int64
	Discipline     string
	IsCompetition  bool
	HasPonyClasses bool
	Classes        []string
	URL            string
	Description    string
	RawExtract     []byte
}

// UpsertResult reports whether the row was inserted or refreshed.
type UpsertResult struct {
	ID       int64
	Inserted bool
}

// Filters narrows List. Zero values mean "no constraint"; IsCompetition
// defaults to true at the API layer, nil here means all rows.
type Filters struct {
	From          *time.Time
	To            *time.Time
	Discipline    string
	VenueQuery    string
	PonyOnly      bool
	IsCompetition *bool
	MaxDistance   *float64
}

type Pagination struct {
	Limit  int
	Offset int
}

type ListResult struct {
	Competitions []Competition
	Total        int
}

type Repository interface {
	Upsert(ctx context.Context, params UpsertParams) (UpsertResult, error)
	List(ctx context.Context, filters Filters, page Pagination) (ListResult, error)
	GetByID(ctx context.Context, id int64) (*Competition, error)
	// DistinctDisciplines lists stored discipline values with row counts,
	// for the post-scan audit.
	DistinctDisciplines(ctx context.Context) (map[string]int, error)
	RewriteDiscipline(ctx context.Context, from, to string) (int64, error)
}
