// Package seed applies the embedded source and venue seed data. Seeding is
// idempotent and runs at every startup; operator edits (disabled sources,
// learned aliases) survive it.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/equiscan/server/internal/domain/venues"
	"github.com/equiscan/server/internal/storage"
)

//go:embed seeds.yaml
var seedsYAML []byte

type Data struct {
	Sources []SourceSeed `yaml:"sources"`
	Venues  []VenueSeed  `yaml:"venues"`
	// AmbiguousNames are venue spellings shared by unrelated venues; the
	// matcher refuses to resolve them by name alone.
	AmbiguousNames []string `yaml:"ambiguous_names"`
}

type SourceSeed struct {
	Key         string `yaml:"key"`
	DisplayName string `yaml:"display_name"`
	URL         string `yaml:"url"`
	Enabled     bool   `yaml:"enabled"`
}

type VenueSeed struct {
	Name     string   `yaml:"name"`
	Postcode string   `yaml:"postcode"`
	Lat      *float64 `yaml:"lat"`
	Lng      *float64 `yaml:"lng"`
	Aliases  []string `yaml:"aliases"`
}

// Load parses the embedded seed file.
func Load() (*Data, error) {
	var data Data
	if err := yaml.Unmarshal(seedsYAML, &data); err != nil {
		return nil, fmt.Errorf("parsing embedded seeds: %w", err)
	}
	return &data, nil
}

// Apply upserts the seed data: sources by key, venues by canonical name,
// aliases by alias text.
func Apply(ctx context.Context, repo storage.Repository, data *Data, logger zerolog.Logger) error {
	for _, s := range data.Sources {
		if _, err := repo.Sources().UpsertByKey(ctx, s.Key, s.DisplayName, s.URL, s.Enabled); err != nil {
			return fmt.Errorf("seeding source %q: %w", s.Key, err)
		}
	}

	for _, vs := range data.Venues {
		venue, err := repo.Venues().Create(ctx, vs.Name, vs.Postcode)
		if errors.Is(err, venues.ErrDuplicate) {
			venue, err = repo.Venues().GetByName(ctx, vs.Name)
		}
		if err != nil {
			return fmt.Errorf("seeding venue %q: %w", vs.Name, err)
		}

		if vs.Postcode != "" {
			if err := repo.Venues().SetPostcode(ctx, venue.ID, vs.Postcode); err != nil {
				return fmt.Errorf("seeding venue %q postcode: %w", vs.Name, err)
			}
		}
		if vs.Lat != nil && vs.Lng != nil {
			if _, err := repo.Venues().SetCoordinates(ctx, venue.ID, *vs.Lat, *vs.Lng); err != nil {
				return fmt.Errorf("seeding venue %q coordinates: %w", vs.Name, err)
			}
		}
		for _, alias := range vs.Aliases {
			if err := repo.Venues().UpsertAlias(ctx, alias, venue.ID, "seed"); err != nil {
				return fmt.Errorf("seeding alias %q: %w", alias, err)
			}
		}
	}

	logger.Info().Int("sources", len(data.Sources)).Int("venues", len(data.Venues)).
		Msg("seed data applied")
	return nil
}
