// Package geocode turns venues into coordinates and coordinates into
// distances from home.
//
// The cascade for a venue is: existing coordinates on the row, then
// coordinates the parser extracted, then the postcode registers, then a
// free-form name search. Every hit is checked against the UK bounding box
// before it is written; the write itself is conditional so a venue's
// coordinates are set exactly once.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/equiscan/server/internal/domain/settings"
	"github.com/equiscan/server/internal/domain/venues"
	"github.com/equiscan/server/internal/metrics"
	"github.com/equiscan/server/internal/normalize"
)

// ErrInvalidPostcode marks a home postcode that failed validation or did
// not resolve to coordinates.
var ErrInvalidPostcode = errors.New("invalid postcode")

type Service struct {
	client   *Client
	venues   venues.Repository
	settings settings.Repository
	logger   zerolog.Logger

	// Home postcode from config, used when no home location is stored yet.
	defaultHomePostcode string

	mu   sync.Mutex
	home *Point
}

func NewService(client *Client, venueRepo venues.Repository, settingsRepo settings.Repository, defaultHomePostcode string, logger zerolog.Logger) *Service {
	return &Service{
		client:              client,
		venues:              venueRepo,
		settings:            settingsRepo,
		logger:              logger,
		defaultHomePostcode: defaultHomePostcode,
	}
}

// EnsureVenue runs the cascade for one venue and, on success, writes
// coordinates and the distance from home. parserPoint carries coordinates
// the source listed, when it listed any. A cascade that ends with no
// coordinates is not an error; the venue just stays unlocated.
func (s *Service) EnsureVenue(ctx context.Context, venue *venues.Venue, parserPoint *Point) error {
	if venue.Latitude != nil && venue.Longitude != nil {
		return s.ensureDistance(ctx, venue, Point{Lat: *venue.Latitude, Lng: *venue.Longitude})
	}

	point, err := s.locate(ctx, venue, parserPoint)
	if err != nil {
		return err
	}
	if point == nil {
		s.logger.Debug().Str("venue", venue.Name).Msg("geocode: cascade exhausted")
		return nil
	}

	changed, err := s.venues.SetCoordinates(ctx, venue.ID, point.Lat, point.Lng)
	if err != nil {
		return fmt.Errorf("writing coordinates for venue %d: %w", venue.ID, err)
	}
	if changed {
		venue.Latitude = &point.Lat
		venue.Longitude = &point.Lng
		s.logger.Info().Str("venue", venue.Name).
			Float64("lat", point.Lat).Float64("lng", point.Lng).
			Msg("geocode: venue located")
	}
	return s.ensureDistance(ctx, venue, *point)
}

func (s *Service) locate(ctx context.Context, venue *venues.Venue, parserPoint *Point) (*Point, error) {
	if parserPoint != nil {
		if InUK(*parserPoint) {
			metrics.GeocodeLookups.WithLabelValues("parser", "hit").Inc()
			return parserPoint, nil
		}
		metrics.GeocodeLookups.WithLabelValues("parser", "miss").Inc()
		s.logger.Warn().Str("venue", venue.Name).
			Float64("lat", parserPoint.Lat).Float64("lng", parserPoint.Lng).
			Msg("geocode: parser coordinates outside UK, discarded")
	}

	if venue.Postcode != "" {
		point, err := s.client.Postcode(ctx, venue.Postcode)
		if err != nil {
			return nil, err
		}
		if point != nil {
			if InUK(*point) {
				metrics.GeocodeLookups.WithLabelValues("postcode", "hit").Inc()
				return point, nil
			}
			metrics.GeocodeLookups.WithLabelValues("postcode", "miss").Inc()
			return nil, nil
		}
		metrics.GeocodeLookups.WithLabelValues("postcode", "miss").Inc()
	}

	if venue.Name == "" || venue.Name == normalize.TbcVenue {
		return nil, nil
	}
	point, err := s.client.Search(ctx, venue.Name)
	if err != nil {
		return nil, err
	}
	if point != nil && !InUK(*point) {
		metrics.GeocodeLookups.WithLabelValues("search", "miss").Inc()
		return nil, nil
	}
	if point == nil {
		metrics.GeocodeLookups.WithLabelValues("search", "miss").Inc()
	} else {
		metrics.GeocodeLookups.WithLabelValues("search", "hit").Inc()
	}
	return point, nil
}

func (s *Service) ensureDistance(ctx context.Context, venue *venues.Venue, at Point) error {
	if venue.DistanceMiles != nil {
		return nil
	}
	home, err := s.Home(ctx)
	if err != nil {
		return err
	}
	if home == nil {
		return nil
	}
	miles := Miles(*home, at)
	if err := s.venues.SetDistance(ctx, venue.ID, miles); err != nil {
		return fmt.Errorf("writing distance for venue %d: %w", venue.ID, err)
	}
	venue.DistanceMiles = &miles
	return nil
}

// Home returns the home location, resolving and persisting it on first use.
// Returns nil when the home postcode cannot be geocoded.
func (s *Service) Home(ctx context.Context) (*Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.home != nil {
		return s.home, nil
	}

	latStr, errLat := s.settings.Get(ctx, settings.KeyHomeLat)
	lngStr, errLng := s.settings.Get(ctx, settings.KeyHomeLng)
	if errLat == nil && errLng == nil {
		lat, err1 := strconv.ParseFloat(latStr, 64)
		lng, err2 := strconv.ParseFloat(lngStr, 64)
		if err1 == nil && err2 == nil {
			s.home = &Point{Lat: lat, Lng: lng}
			return s.home, nil
		}
	}

	postcode, err := s.settings.Get(ctx, settings.KeyHomePostcode)
	if err != nil {
		postcode = s.defaultHomePostcode
	}
	point, err := s.geocodeHome(ctx, postcode)
	if err != nil {
		return nil, err
	}
	s.home = point
	return point, nil
}

// SetHome changes the home postcode, clears every stored distance, and
// recomputes distances for all located venues.
func (s *Service) SetHome(ctx context.Context, rawPostcode string) error {
	postcode := normalize.Postcode(rawPostcode)
	if postcode == "" {
		return fmt.Errorf("%w: %q", ErrInvalidPostcode, rawPostcode)
	}

	s.mu.Lock()
	point, err := s.geocodeHome(ctx, postcode)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if point == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q did not geocode", ErrInvalidPostcode, postcode)
	}
	if err := s.settings.Set(ctx, settings.KeyHomePostcode, postcode); err != nil {
		s.mu.Unlock()
		return err
	}
	s.home = point
	s.mu.Unlock()

	if err := s.venues.ClearDistances(ctx); err != nil {
		return fmt.Errorf("clearing distances: %w", err)
	}
	return s.RecomputeDistances(ctx)
}

// RecomputeDistances fills in distance for every located venue that lacks
// one. Used after scans (venues that just gained coordinates) and after a
// home move (all venues).
func (s *Service) RecomputeDistances(ctx context.Context) error {
	home, err := s.Home(ctx)
	if err != nil {
		return err
	}
	if home == nil {
		return nil
	}

	pending, err := s.venues.ListMissingDistance(ctx)
	if err != nil {
		return fmt.Errorf("listing venues without distance: %w", err)
	}
	for _, v := range pending {
		if v.Latitude == nil || v.Longitude == nil {
			continue
		}
		miles := Miles(*home, Point{Lat: *v.Latitude, Lng: *v.Longitude})
		if err := s.venues.SetDistance(ctx, v.ID, miles); err != nil {
			return fmt.Errorf("writing distance for venue %d: %w", v.ID, err)
		}
	}
	if len(pending) > 0 {
		s.logger.Info().Int("venues", len(pending)).Msg("geocode: distances recomputed")
	}
	return nil
}

// geocodeHome resolves the home postcode and persists the result. Caller
// holds s.mu.
func (s *Service) geocodeHome(ctx context.Context, postcode string) (*Point, error) {
	point, err := s.client.Postcode(ctx, postcode)
	if err != nil {
		return nil, fmt.Errorf("geocoding home postcode %q: %w", postcode, err)
	}
	if point == nil {
		s.logger.Warn().Str("postcode", postcode).Msg("geocode: home postcode not found")
		return nil, nil
	}
	if err := s.settings.Set(ctx, settings.KeyHomeLat, strconv.FormatFloat(point.Lat, 'f', -1, 64)); err != nil {
		return nil, err
	}
	if err := s.settings.Set(ctx, settings.KeyHomeLng, strconv.FormatFloat(point.Lng, 'f', -1, 64)); err != nil {
		return nil, err
	}
	return point, nil
}
