package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/equiscan/server/internal/config"
	"github.com/equiscan/server/internal/geocode"
	"github.com/equiscan/server/internal/parser"
	_ "github.com/equiscan/server/internal/parser/sites"
	"github.com/equiscan/server/internal/scan"
	"github.com/equiscan/server/internal/seed"
	"github.com/equiscan/server/internal/storage/postgres"
	"github.com/equiscan/server/internal/venue"
)

// app bundles the wired pipeline shared by the serve and scan commands.
type app struct {
	cfg      config.Config
	logger   zerolog.Logger
	pool     *pgxpool.Pool
	repo     *postgres.Repository
	matcher  *venue.Matcher
	geocoder *geocode.Service
	renderer *parser.Renderer
	runner   *scan.Runner
}

// buildApp connects to the database, applies seed data, loads the venue
// index, and wires the scan pipeline. Callers must close() when done.
func buildApp(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*app, error) {
	pool, err := postgres.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("repository init failed: %w", err)
	}

	seeds, err := seed.Load()
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("loading seed data: %w", err)
	}
	if err := seed.Apply(ctx, repo, seeds, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("applying seed data: %w", err)
	}

	matcher := venue.NewMatcher(repo.Venues(), seeds.AmbiguousNames, logger)
	if err := matcher.Load(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("loading venue index: %w", err)
	}

	fetcher := parser.NewFetcher(logger, parser.WithRatePerHost(cfg.Scan.HTTPRatePerHost))
	renderer := parser.NewRenderer(logger)
	env := parser.Env{
		Fetcher:  fetcher,
		Renderer: renderer,
		Extractor: parser.ExtractorSettings{
			URL:   cfg.Extractor.URL,
			Model: cfg.Extractor.Model,
		},
		Logger: logger,
	}

	geocodeClient := geocode.NewClient(fetcher, cfg.Geocoder.PrimaryURL, cfg.Geocoder.FallbackURL)
	geocoder := geocode.NewService(geocodeClient, repo.Venues(), repo.Settings(), cfg.Scan.HomePostcode, logger)

	runner := scan.NewRunner(repo, matcher, geocoder, env,
		time.Duration(cfg.Scan.TimeoutSeconds)*time.Second, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		repo:     repo,
		matcher:  matcher,
		geocoder: geocoder,
		renderer: renderer,
		runner:   runner,
	}, nil
}

func (a *app) close() {
	if err := a.renderer.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("renderer shutdown error")
	}
	a.pool.Close()
}
