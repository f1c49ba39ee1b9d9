package geocode

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/equiscan/server/internal/domain/settings"
	"github.com/equiscan/server/internal/domain/venues"
	"github.com/equiscan/server/internal/parser"
)

type fakeVenues struct {
	venues.Repository
	coords    map[int64]Point
	distances map[int64]float64
}

func newFakeVenues() *fakeVenues {
	return &fakeVenues{coords: map[int64]Point{}, distances: map[int64]float64{}}
}

func (f *fakeVenues) SetCoordinates(_ context.Context, id int64, lat, lng float64) (bool, error) {
	if _, done := f.coords[id]; done {
		return false, nil
	}
	f.coords[id] = Point{Lat: lat, Lng: lng}
	return true, nil
}

func (f *fakeVenues) SetDistance(_ context.Context, id int64, miles float64) error {
	f.distances[id] = miles
	return nil
}

func (f *fakeVenues) ListMissingDistance(context.Context) ([]venues.Venue, error) {
	return nil, nil
}

type fakeSettings struct {
	values map[string]string
}

func (f *fakeSettings) Get(_ context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", settings.ErrNotFound
	}
	return v, nil
}

func (f *fakeSettings) Set(_ context.Context, key, value string) error {
	f.values[key] = value
	return nil
}

// geocodeServer answers postcodes.io-shaped lookups for the home postcode
// and one venue postcode.
func geocodeServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/robots.txt":
			http.NotFound(w, r)
		case r.URL.Path == "/postcodes/SW1A 1AA":
			w.Write([]byte(`{"status":200,"result":{"latitude":51.501,"longitude":-0.141}}`))
		case r.URL.Path == "/postcodes/NG32 2EF":
			w.Write([]byte(`{"status":200,"result":{"latitude":52.95,"longitude":-0.65}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T, repo *fakeVenues) *Service {
	t.Helper()
	srv := geocodeServer(t)
	fetcher := parser.NewFetcher(zerolog.Nop(), parser.WithRatePerHost(1000))
	client := NewClient(fetcher, srv.URL, srv.URL)
	return NewService(client, repo, &fakeSettings{values: map[string]string{}}, "SW1A 1AA", zerolog.Nop())
}

func TestEnsureVenueUsesParserCoordinates(t *testing.T) {
	repo := newFakeVenues()
	svc := newTestService(t, repo)

	v := &venues.Venue{ID: 1, Name: "Eland Lodge"}
	err := svc.EnsureVenue(context.Background(), v, &Point{Lat: 52.81, Lng: -1.75})
	if err != nil {
		t.Fatal(err)
	}
	if got := repo.coords[1]; got.Lat != 52.81 || got.Lng != -1.75 {
		t.Errorf("coords = %+v", got)
	}
	if v.DistanceMiles == nil {
		t.Fatal("distance not computed")
	}
	// ~124 miles from SW1A 1AA.
	if math.Abs(*v.DistanceMiles-124) > 5 {
		t.Errorf("distance = %.1f, want ~124", *v.DistanceMiles)
	}
}

func TestEnsureVenueDiscardsNonUKParserCoords(t *testing.T) {
	repo := newFakeVenues()
	svc := newTestService(t, repo)

	// Parser coords are in France; the postcode register must win.
	v := &venues.Venue{ID: 2, Name: "Arena Uk", Postcode: "NG32 2EF"}
	if err := svc.EnsureVenue(context.Background(), v, &Point{Lat: 48.85, Lng: 2.35}); err != nil {
		t.Fatal(err)
	}
	if got := repo.coords[2]; got.Lat != 52.95 {
		t.Errorf("coords = %+v, want postcode result 52.95,-0.65", got)
	}
}

func TestEnsureVenueAlreadyLocatedSkipsLookup(t *testing.T) {
	repo := newFakeVenues()
	svc := newTestService(t, repo)

	lat, lng := 53.0, -1.0
	v := &venues.Venue{ID: 3, Name: "Kelsall Hill", Latitude: &lat, Longitude: &lng}
	if err := svc.EnsureVenue(context.Background(), v, nil); err != nil {
		t.Fatal(err)
	}
	if _, wrote := repo.coords[3]; wrote {
		t.Error("coordinates rewritten for an already-located venue")
	}
	if v.DistanceMiles == nil {
		t.Error("distance not backfilled for located venue")
	}
}

func TestEnsureVenueCascadeMissIsNotError(t *testing.T) {
	repo := newFakeVenues()
	svc := newTestService(t, repo)

	v := &venues.Venue{ID: 4, Name: "Tbc"}
	if err := svc.EnsureVenue(context.Background(), v, nil); err != nil {
		t.Fatalf("miss should not error: %v", err)
	}
	if len(repo.coords) != 0 {
		t.Errorf("coords written on miss: %+v", repo.coords)
	}
}
