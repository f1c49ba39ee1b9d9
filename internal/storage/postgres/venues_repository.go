package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/equiscan/server/internal/domain/venues"
)

var _ venues.Repository = (*VenueRepository)(nil)

const venueColumns = `id, name, postcode, latitude, longitude, distance_miles, created_at, updated_at`

func scanVenue(row pgx.Row) (*venues.Venue, error) {
	var v venues.Venue
	err := row.Scan(&v.ID, &v.Name, &v.Postcode, &v.Latitude, &v.Longitude,
		&v.DistanceMiles, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, venues.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning venue: %w", err)
	}
	return &v, nil
}

func (r *VenueRepository) List(ctx context.Context) ([]venues.Venue, error) {
	rows, err := r.queryer().Query(ctx, `SELECT `+venueColumns+` FROM venues ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing venues: %w", err)
	}
	defer rows.Close()

	var out []venues.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (r *VenueRepository) GetByID(ctx context.Context, id int64) (*venues.Venue, error) {
	return scanVenue(r.queryer().QueryRow(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE id = $1`, id))
}

func (r *VenueRepository) GetByName(ctx context.Context, name string) (*venues.Venue, error) {
	return scanVenue(r.queryer().QueryRow(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE lower(name) = lower($1)`, name))
}

func (r *VenueRepository) Create(ctx context.Context, name, postcode string) (*venues.Venue, error) {
	v, err := scanVenue(r.queryer().QueryRow(ctx, `
INSERT INTO venues (name, postcode) VALUES ($1, $2)
RETURNING `+venueColumns,
		name, postcode))
	if isUniqueViolation(err) {
		return nil, venues.ErrDuplicate
	}
	return v, err
}

func (r *VenueRepository) ListAliases(ctx context.Context) ([]venues.Alias, error) {
	rows, err := r.queryer().Query(ctx,
		`SELECT id, alias, venue_id, source FROM venue_aliases ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing venue aliases: %w", err)
	}
	defer rows.Close()

	var out []venues.Alias
	for rows.Next() {
		var a venues.Alias
		if err := rows.Scan(&a.ID, &a.Alias, &a.VenueID, &a.Source); err != nil {
			return nil, fmt.Errorf("scanning venue alias: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *VenueRepository) UpsertAlias(ctx context.Context, alias string, venueID int64, source string) error {
	_, err := r.queryer().Exec(ctx, `
INSERT INTO venue_aliases (alias, venue_id, source) VALUES ($1, $2, $3)
ON CONFLICT ((lower(alias))) DO NOTHING`,
		alias, venueID, source)
	if err != nil {
		return fmt.Errorf("upserting venue alias: %w", err)
	}
	return nil
}

func (r *VenueRepository) SetCoordinates(ctx context.Context, id int64, lat, lng float64) (bool, error) {
	tag, err := r.queryer().Exec(ctx, `
UPDATE venues
   SET latitude = $2, longitude = $3, updated_at = now()
 WHERE id = $1 AND latitude IS NULL`,
		id, lat, lng)
	if err != nil {
		return false, fmt.Errorf("setting venue coordinates: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *VenueRepository) SetPostcode(ctx context.Context, id int64, postcode string) error {
	_, err := r.queryer().Exec(ctx, `
UPDATE venues SET postcode = $2, updated_at = now()
 WHERE id = $1 AND postcode = ''`,
		id, postcode)
	if err != nil {
		return fmt.Errorf("setting venue postcode: %w", err)
	}
	return nil
}

func (r *VenueRepository) SetDistance(ctx context.Context, id int64, miles float64) error {
	_, err := r.queryer().Exec(ctx, `
UPDATE venues SET distance_miles = $2, updated_at = now() WHERE id = $1`,
		id, miles)
	if err != nil {
		return fmt.Errorf("setting venue distance: %w", err)
	}
	return nil
}

func (r *VenueRepository) ListMissingDistance(ctx context.Context) ([]venues.Venue, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT `+venueColumns+` FROM venues
 WHERE latitude IS NOT NULL AND distance_miles IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("listing venues missing distance: %w", err)
	}
	defer rows.Close()

	var out []venues.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (r *VenueRepository) ClearDistances(ctx context.Context) error {
	_, err := r.queryer().Exec(ctx, `UPDATE venues SET distance_miles = NULL`)
	if err != nil {
		return fmt.Errorf("clearing venue distances: %w", err)
	}
	return nil
}

// isUniqueViolation reports Postgres error 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
