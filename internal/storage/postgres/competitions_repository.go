package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/equiscan/server/internal/domain/competitions"
)

var _ competitions.Repository = (*CompetitionRepository)(nil)

const competitionColumns = `c.id, c.source_id, c.name, c.date_start, c.date_end, c.venue_id,
       c.discipline, c.is_competition, c.has_pony_classes, c.classes, c.url,
       c.description, c.raw_extract, c.first_seen_at, c.last_seen_at`

func scanCompetition(row pgx.Row) (*competitions.Competition, error) {
	var c competitions.Competition
	err := row.Scan(&c.ID, &c.SourceID, &c.Name, &c.DateStart, &c.DateEnd, &c.VenueID,
		&c.Discipline, &c.IsCompetition, &c.HasPonyClasses, &c.Classes, &c.URL,
		&c.Description, &c.RawExtract, &c.FirstSeenAt, &c.LastSeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, competitions.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning competition: %w", err)
	}
	return &c, nil
}

// Upsert inserts on a new (source, name, date_start, venue) identity and
// refreshes the mutable fields otherwise. first_seen_at never moves;
// last_seen_at always does.
func (r *CompetitionRepository) Upsert(ctx context.Context, params competitions.UpsertParams) (competitions.UpsertResult, error) {
	classes := params.Classes
	if classes == nil {
		classes = []string{}
	}

	var result competitions.UpsertResult
	err := r.queryer().QueryRow(ctx, `
INSERT INTO competitions (source_id, name, date_start, date_end, venue_id,
                          discipline, is_competition, has_pony_classes,
                          classes, url, description, raw_extract)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT ON CONSTRAINT competitions_identity_key DO UPDATE
   SET date_end = EXCLUDED.date_end,
       discipline = EXCLUDED.discipline,
       is_competition = EXCLUDED.is_competition,
       has_pony_classes = EXCLUDED.has_pony_classes,
       classes = EXCLUDED.classes,
       url = EXCLUDED.url,
       description = EXCLUDED.description,
       raw_extract = EXCLUDED.raw_extract,
       last_seen_at = now()
RETURNING id, (xmax = 0) AS inserted`,
		params.SourceID, params.Name, params.DateStart, params.DateEnd, params.VenueID,
		params.Discipline, params.IsCompetition, params.HasPonyClasses,
		classes, params.URL, params.Description, params.RawExtract,
	).Scan(&result.ID, &result.Inserted)
	if err != nil {
		return competitions.UpsertResult{}, fmt.Errorf("upserting competition: %w", err)
	}
	return result, nil
}

func (r *CompetitionRepository) List(ctx context.Context, filters competitions.Filters, page competitions.Pagination) (competitions.ListResult, error) {
	limit := page.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	where := `
 WHERE ($1::date IS NULL OR c.date_start >= $1 OR (c.date_end IS NOT NULL AND c.date_end >= $1))
   AND ($2::date IS NULL OR c.date_start <= $2)
   AND ($3 = '' OR c.discipline = $3)
   AND ($4 = '' OR v.name ILIKE '%' || $4 || '%')
   AND (NOT $5::boolean OR c.has_pony_classes)
   AND ($6::boolean IS NULL OR c.is_competition = $6)
   AND ($7::double precision IS NULL OR (v.distance_miles IS NOT NULL AND v.distance_miles <= $7))`

	args := []any{
		filters.From, filters.To, filters.Discipline, filters.VenueQuery,
		filters.PonyOnly, filters.IsCompetition, filters.MaxDistance,
	}

	var total int
	err := r.queryer().QueryRow(ctx,
		`SELECT count(*) FROM competitions c JOIN venues v ON v.id = c.venue_id`+where,
		args...).Scan(&total)
	if err != nil {
		return competitions.ListResult{}, fmt.Errorf("counting competitions: %w", err)
	}

	rows, err := r.queryer().Query(ctx, `
SELECT `+competitionColumns+`
  FROM competitions c
  JOIN venues v ON v.id = c.venue_id`+where+`
 ORDER BY c.date_start ASC, c.id ASC
 LIMIT $8 OFFSET $9`,
		append(args, limit, page.Offset)...)
	if err != nil {
		return competitions.ListResult{}, fmt.Errorf("listing competitions: %w", err)
	}
	defer rows.Close()

	result := competitions.ListResult{Total: total}
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return competitions.ListResult{}, err
		}
		result.Competitions = append(result.Competitions, *c)
	}
	return result, rows.Err()
}

func (r *CompetitionRepository) GetByID(ctx context.Context, id int64) (*competitions.Competition, error) {
	return scanCompetition(r.queryer().QueryRow(ctx, `
SELECT `+competitionColumns+` FROM competitions c WHERE c.id = $1`, id))
}

func (r *CompetitionRepository) DistinctDisciplines(ctx context.Context) (map[string]int, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT discipline, count(*) FROM competitions GROUP BY discipline`)
	if err != nil {
		return nil, fmt.Errorf("listing disciplines: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var discipline string
		var count int
		if err := rows.Scan(&discipline, &count); err != nil {
			return nil, fmt.Errorf("scanning discipline count: %w", err)
		}
		out[discipline] = count
	}
	return out, rows.Err()
}

func (r *CompetitionRepository) RewriteDiscipline(ctx context.Context, from, to string) (int64, error) {
	tag, err := r.queryer().Exec(ctx,
		`UPDATE competitions SET discipline = $2 WHERE discipline = $1`, from, to)
	if err != nil {
		return 0, fmt.Errorf("rewriting discipline %q: %w", from, err)
	}
	return tag.RowsAffected(), nil
}
