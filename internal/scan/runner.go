// Package scan runs one ingestion pass over one source: fetch and parse,
// then normalize, classify, resolve, geocode, sanitize, and upsert each
// extracted event. Events are independent; one bad record never aborts a
// scan, and each upsert commits in its own transaction so a mid-scan
// failure keeps everything processed so far.
package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/equiscan/server/internal/classify"
	"github.com/equiscan/server/internal/domain/competitions"
	"github.com/equiscan/server/internal/domain/scans"
	"github.com/equiscan/server/internal/domain/sources"
	"github.com/equiscan/server/internal/domain/venues"
	"github.com/equiscan/server/internal/geocode"
	"github.com/equiscan/server/internal/metrics"
	"github.com/equiscan/server/internal/normalize"
	"github.com/equiscan/server/internal/parser"
	"github.com/equiscan/server/internal/sanitize"
	"github.com/equiscan/server/internal/storage"
	"github.com/equiscan/server/internal/venue"
)

// Resolver is the venue matcher surface the runner needs.
type Resolver interface {
	Resolve(ctx context.Context, name, postcode string) (venue.Match, error)
}

// Geocoder locates venues and maintains distances.
type Geocoder interface {
	EnsureVenue(ctx context.Context, v *venues.Venue, parserPoint *geocode.Point) error
	RecomputeDistances(ctx context.Context) error
}

// Runner executes scans. One Runner serves all workers; per-scan state
// lives on the stack.
type Runner struct {
	repo     storage.Repository
	matcher  Resolver
	geocoder Geocoder
	env      parser.Env
	timeout  time.Duration
	logger   zerolog.Logger

	// parserFor is swappable in tests; defaults to the registry.
	parserFor func(key string, env parser.Env) parser.Parser
}

func NewRunner(repo storage.Repository, matcher Resolver, geocoder Geocoder, env parser.Env, timeout time.Duration, logger zerolog.Logger) *Runner {
	return &Runner{
		repo:      repo,
		matcher:   matcher,
		geocoder:  geocoder,
		env:       env,
		timeout:   timeout,
		logger:    logger,
		parserFor: parser.Get,
	}
}

// Run drives one scan to a terminal state. The returned error reports
// infrastructure failures only; a scan that fails for source reasons
// (fetch error, timeout) records its failure and returns nil.
func (r *Runner) Run(ctx context.Context, scanID, sourceID int64, trigger string) error {
	source, err := r.repo.Sources().GetByID(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("loading source %d: %w", sourceID, err)
	}
	logger := r.logger.With().Int64("scan_id", scanID).Str("source", source.Key).Logger()

	if err := r.repo.Scans().MarkRunning(ctx, scanID); err != nil {
		return err
	}
	started := time.Now()

	scanCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	events, err := r.parserFor(source.Key, r.env).FetchAndParse(scanCtx, source.URL)
	if err != nil {
		return r.fail(ctx, scanID, source, scans.Counts{}, started, fmt.Sprintf("fetch: %v", err), logger)
	}
	logger.Info().Int("events", len(events)).Msg("scan: extraction complete")

	var counts scans.Counts
	counts.Found = len(events)
	for _, ev := range events {
		if scanCtx.Err() != nil {
			// Timeout or cancellation: everything upserted so far stays.
			return r.fail(ctx, scanID, source, counts, started, "timeout", logger)
		}
		outcome, isCompetition, err := r.processEvent(scanCtx, source, ev, logger)
		if err != nil {
			// A database error on upsert ends the scan; events committed
			// before it stay.
			if failErr := r.fail(ctx, scanID, source, counts, started, fmt.Sprintf("upsert: %v", err), logger); failErr != nil {
				return failErr
			}
			return fmt.Errorf("scan %d upsert: %w", scanID, err)
		}
		metrics.EventsProcessed.WithLabelValues(source.Key, outcome).Inc()
		if outcome == outcomeSkipped {
			counts.Skipped++
			continue
		}
		counts.Upserted++
		if isCompetition {
			counts.Competitions++
		} else {
			counts.Training++
		}
	}

	// Venues that learned coordinates during the scan still need their
	// distance from home.
	if err := r.geocoder.RecomputeDistances(ctx); err != nil {
		logger.Warn().Err(err).Msg("scan: distance backfill failed")
	}

	warning := r.thresholdWarning(ctx, source.ID, counts.Found)
	if warning != "" {
		logger.Warn().Str("warning", warning).Msg("scan: completed with warning")
	}
	if err := r.repo.Scans().Complete(ctx, scanID, counts, warning); err != nil {
		return err
	}
	metrics.ScansTotal.WithLabelValues(source.Key, scans.StatusCompleted).Inc()
	metrics.ScanDuration.WithLabelValues(source.Key).Observe(time.Since(started).Seconds())
	logger.Info().
		Int("found", counts.Found).Int("upserted", counts.Upserted).Int("skipped", counts.Skipped).
		Int("competitions", counts.Competitions).Int("training", counts.Training).
		Dur("duration", time.Since(started)).
		Msg("scan: completed")

	if trigger == scans.TriggerScheduled {
		r.auditDisciplines(ctx, logger)
	}
	return nil
}

const (
	outcomeInserted = "inserted"
	outcomeUpdated  = "updated"
	outcomeSkipped  = "skipped"
)

// processEvent returns the outcome plus whether the event classified as a
// competition; the second return is meaningless for skips. Validation and
// resolution problems skip the event; a database error on the upsert itself
// comes back as the error and is fatal to the scan.
func (r *Runner) processEvent(ctx context.Context, source *sources.Source, ev parser.ExtractedEvent, logger zerolog.Logger) (string, bool, error) {
	if err := ev.Validate(); err != nil {
		logger.Warn().Err(err).Str("event", ev.Name).Msg("scan: skipping invalid event")
		return outcomeSkipped, false, nil
	}

	dateStart, err := time.Parse("2006-01-02", ev.DateStart)
	if err != nil {
		logger.Warn().Str("event", ev.Name).Str("date", ev.DateStart).
			Msg("scan: skipping event with unparseable date")
		return outcomeSkipped, false, nil
	}
	var dateEnd *time.Time
	if ev.DateEnd != "" {
		if end, err := time.Parse("2006-01-02", ev.DateEnd); err == nil && end.After(dateStart) {
			dateEnd = &end
		}
	}

	venueName := normalize.VenueName(ev.VenueName)
	postcode := normalize.Postcode(ev.VenuePostcode)
	result := classify.Classify(ev.Name, ev.Discipline, ev.Description)

	match, err := r.matcher.Resolve(ctx, venueName, postcode)
	if err != nil {
		logger.Warn().Err(err).Str("venue", venueName).Msg("scan: venue resolution failed")
		return outcomeSkipped, false, nil
	}
	if match.Type == venue.MatchNew {
		metrics.VenuesCreated.Inc()
	}

	// A matched venue without a postcode can learn one from this event.
	if postcode != "" && match.Venue.Postcode == "" {
		if err := r.repo.Venues().SetPostcode(ctx, match.Venue.ID, postcode); err != nil {
			logger.Warn().Err(err).Str("venue", match.Venue.Name).Msg("scan: postcode backfill failed")
		} else {
			match.Venue.Postcode = postcode
		}
	}

	var parserPoint *geocode.Point
	if ev.Latitude != nil && ev.Longitude != nil {
		parserPoint = &geocode.Point{Lat: *ev.Latitude, Lng: *ev.Longitude}
	}
	if err := r.geocoder.EnsureVenue(ctx, match.Venue, parserPoint); err != nil {
		logger.Warn().Err(err).Str("venue", match.Venue.Name).Msg("scan: geocoding failed")
	}

	classes := sanitize.TextSlice(ev.Classes)
	ponyText := ev.Name + " " + strings.Join(classes, " ")
	raw, err := json.Marshal(ev)
	if err != nil {
		raw = nil
	}

	params := competitions.UpsertParams{
		SourceID:       source.ID,
		Name:           sanitize.Text(ev.Name),
		DateStart:      dateStart,
		DateEnd:        dateEnd,
		VenueID:        match.Venue.ID,
		Discipline:     result.Discipline,
		IsCompetition:  result.IsCompetition,
		HasPonyClasses: ev.HasPonyClasses || normalize.DetectPonyClasses(ponyText),
		Classes:        classes,
		URL:            normalize.SanitizeURL(ev.URL),
		Description:    sanitize.Text(ev.Description),
		RawExtract:     raw,
	}

	var upserted competitions.UpsertResult
	err = r.repo.WithTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		var err error
		upserted, err = tx.Competitions().Upsert(ctx, params)
		return err
	})
	if err != nil {
		return "", false, fmt.Errorf("upserting %q: %w", params.Name, err)
	}
	if upserted.Inserted {
		return outcomeInserted, result.IsCompetition, nil
	}
	return outcomeUpdated, result.IsCompetition, nil
}

func (r *Runner) fail(ctx context.Context, scanID int64, source *sources.Source, counts scans.Counts, started time.Time, reason string, logger zerolog.Logger) error {
	if err := r.repo.Scans().Fail(ctx, scanID, counts, reason); err != nil {
		return err
	}
	metrics.ScansTotal.WithLabelValues(source.Key, scans.StatusFailed).Inc()
	metrics.ScanDuration.WithLabelValues(source.Key).Observe(time.Since(started).Seconds())
	logger.Error().Str("reason", reason).Int("upserted", counts.Upserted).Msg("scan: failed")
	return nil
}

// thresholdWarning flags suspiciously small result sets: zero events, or a
// drop to under half of the previous completed scan. Both usually mean the
// site changed shape rather than the calendar emptied.
func (r *Runner) thresholdWarning(ctx context.Context, sourceID int64, found int) string {
	if found == 0 {
		return "scan found zero events"
	}
	previous, err := r.repo.Scans().LatestCompleted(ctx, sourceID)
	if err != nil {
		if !errors.Is(err, scans.ErrNotFound) {
			r.logger.Warn().Err(err).Msg("scan: threshold check failed")
		}
		return ""
	}
	if previous.EventsFound > 0 && found*2 < previous.EventsFound {
		return fmt.Sprintf("scan found %d events, previous scan found %d", found, previous.EventsFound)
	}
	return ""
}
