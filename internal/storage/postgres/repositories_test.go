package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equiscan/server/internal/domain/competitions"
	"github.com/equiscan/server/internal/domain/scans"
	"github.com/equiscan/server/internal/domain/settings"
	"github.com/equiscan/server/internal/domain/venues"
	"github.com/equiscan/server/internal/storage"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	pool := setupPostgres(t)
	repo, err := NewRepository(pool)
	require.NoError(t, err)
	return repo
}

func TestSourceUpsertByKey(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	created, err := repo.Sources().UpsertByKey(ctx, "equo_events", "Equo Events", "https://www.equoevents.co.uk", true)
	require.NoError(t, err)
	assert.True(t, created.Enabled)

	// Operator disables the source; reseeding must not flip it back.
	_, err = repo.pool.Exec(ctx, `UPDATE sources SET enabled = FALSE WHERE id = $1`, created.ID)
	require.NoError(t, err)

	again, err := repo.Sources().UpsertByKey(ctx, "equo_events", "Equo Events UK", "https://www.equoevents.co.uk", true)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "Equo Events UK", again.DisplayName)
	assert.False(t, again.Enabled, "reseed must not re-enable a disabled source")

	enabled, err := repo.Sources().ListEnabled(ctx)
	require.NoError(t, err)
	assert.Empty(t, enabled)
}

func TestVenueCreateDuplicateAndConditionalCoords(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	v, err := repo.Venues().Create(ctx, "Eland Lodge", "DE13 8AX")
	require.NoError(t, err)

	_, err = repo.Venues().Create(ctx, "ELAND LODGE", "")
	assert.ErrorIs(t, err, venues.ErrDuplicate, "venue names are unique case-insensitively")

	changed, err := repo.Venues().SetCoordinates(ctx, v.ID, 52.81, -1.75)
	require.NoError(t, err)
	assert.True(t, changed)

	// Second write is a no-op: coordinates are set exactly once.
	changed, err = repo.Venues().SetCoordinates(ctx, v.ID, 0, 0)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := repo.Venues().GetByName(ctx, "eland lodge")
	require.NoError(t, err)
	require.NotNil(t, got.Latitude)
	assert.Equal(t, 52.81, *got.Latitude)
}

func TestVenueAliasUpsertIdempotent(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	v, err := repo.Venues().Create(ctx, "Arena Uk", "NG32 2EF")
	require.NoError(t, err)

	require.NoError(t, repo.Venues().UpsertAlias(ctx, "Arena UK Grantham", v.ID, "seed"))
	require.NoError(t, repo.Venues().UpsertAlias(ctx, "arena uk grantham", v.ID, "learned"))

	aliases, err := repo.Venues().ListAliases(ctx)
	require.NoError(t, err)
	require.Len(t, aliases, 1)
	assert.Equal(t, "seed", aliases[0].Source, "first writer wins")
}

func TestCompetitionUpsertDedup(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	source, err := repo.Sources().UpsertByKey(ctx, "jsonld", "JSON-LD", "https://example.org", true)
	require.NoError(t, err)
	venue, err := repo.Venues().Create(ctx, "Kelsall Hill", "CW6 0TA")
	require.NoError(t, err)

	params := competitions.UpsertParams{
		SourceID:      source.ID,
		Name:          "Unaffiliated ODE",
		DateStart:     time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC),
		VenueID:       venue.ID,
		Discipline:    "Eventing",
		IsCompetition: true,
		Classes:       []string{"80cm", "90cm"},
		URL:           "https://example.org/ode",
	}

	first, err := repo.Competitions().Upsert(ctx, params)
	require.NoError(t, err)
	assert.True(t, first.Inserted)

	// Same identity again: refresh, not insert.
	params.Description = "now with a description"
	second, err := repo.Competitions().Upsert(ctx, params)
	require.NoError(t, err)
	assert.False(t, second.Inserted)
	assert.Equal(t, first.ID, second.ID)

	got, err := repo.Competitions().GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "now with a description", got.Description)
	assert.Equal(t, []string{"80cm", "90cm"}, got.Classes)
	assert.True(t, got.LastSeenAt.After(got.FirstSeenAt) || got.LastSeenAt.Equal(got.FirstSeenAt))

	// Different date is a different row.
	params.DateStart = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	third, err := repo.Competitions().Upsert(ctx, params)
	require.NoError(t, err)
	assert.True(t, third.Inserted)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestCompetitionListFilters(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	source, err := repo.Sources().UpsertByKey(ctx, "jsonld", "JSON-LD", "https://example.org", true)
	require.NoError(t, err)
	near, err := repo.Venues().Create(ctx, "Near Venue", "")
	require.NoError(t, err)
	far, err := repo.Venues().Create(ctx, "Far Venue", "")
	require.NoError(t, err)
	require.NoError(t, repo.Venues().SetDistance(ctx, near.ID, 12))
	require.NoError(t, repo.Venues().SetDistance(ctx, far.ID, 180))

	mk := func(name string, venueID int64, discipline string, isComp, pony bool, day int) {
		_, err := repo.Competitions().Upsert(ctx, competitions.UpsertParams{
			SourceID:       source.ID,
			Name:           name,
			DateStart:      time.Date(2025, 7, day, 0, 0, 0, 0, time.UTC),
			VenueID:        venueID,
			Discipline:     discipline,
			IsCompetition:  isComp,
			HasPonyClasses: pony,
		})
		require.NoError(t, err)
	}
	mk("SJ Near", near.ID, "Show Jumping", true, true, 5)
	mk("Dressage Far", far.ID, "Dressage", true, false, 10)
	mk("Clinic Near", near.ID, "Training", false, false, 15)

	isComp := true
	all, err := repo.Competitions().List(ctx, competitions.Filters{IsCompetition: &isComp}, competitions.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)

	maxDist := 50.0
	local, err := repo.Competitions().List(ctx,
		competitions.Filters{IsCompetition: &isComp, MaxDistance: &maxDist}, competitions.Pagination{})
	require.NoError(t, err)
	require.Len(t, local.Competitions, 1)
	assert.Equal(t, "SJ Near", local.Competitions[0].Name)

	pony, err := repo.Competitions().List(ctx,
		competitions.Filters{PonyOnly: true}, competitions.Pagination{})
	require.NoError(t, err)
	require.Len(t, pony.Competitions, 1)
	assert.Equal(t, "SJ Near", pony.Competitions[0].Name)

	from := time.Date(2025, 7, 8, 0, 0, 0, 0, time.UTC)
	upcoming, err := repo.Competitions().List(ctx,
		competitions.Filters{From: &from}, competitions.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 2, upcoming.Total)
}

func TestScanLifecycle(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	source, err := repo.Sources().UpsertByKey(ctx, "horse_monkey", "Horse Monkey", "https://horsemonkey.com", true)
	require.NoError(t, err)

	scan, err := repo.Scans().Create(ctx, source.ID, scans.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, scans.StatusPending, scan.Status)

	require.NoError(t, repo.Scans().MarkRunning(ctx, scan.ID))
	counts := scans.Counts{Found: 10, Upserted: 8, Skipped: 2, Competitions: 6, Training: 2}
	require.NoError(t, repo.Scans().Complete(ctx, scan.ID, counts, ""))

	got, err := repo.Scans().GetByID(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, scans.StatusCompleted, got.Status)
	assert.Equal(t, 10, got.EventsFound)
	assert.Equal(t, 6, got.CompetitionCount)
	assert.Equal(t, 2, got.TrainingCount)
	require.NotNil(t, got.FinishedAt)

	latest, err := repo.Scans().LatestCompleted(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, scan.ID, latest.ID)

	// A second scan left running is failed by the stale sweep.
	stale, err := repo.Scans().Create(ctx, source.ID, scans.TriggerScheduled)
	require.NoError(t, err)
	require.NoError(t, repo.Scans().MarkRunning(ctx, stale.ID))

	n, err := repo.Scans().FailStale(ctx, "interrupted by restart")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	after, err := repo.Scans().GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, scans.StatusFailed, after.Status)
	assert.Equal(t, "interrupted by restart", after.Error)
}

func TestSettingsRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	_, err := repo.Settings().Get(ctx, settings.KeyHomePostcode)
	assert.ErrorIs(t, err, settings.ErrNotFound)

	require.NoError(t, repo.Settings().Set(ctx, settings.KeyHomePostcode, "SW1A 1AA"))
	require.NoError(t, repo.Settings().Set(ctx, settings.KeyHomePostcode, "CV12 9JA"))

	got, err := repo.Settings().Get(ctx, settings.KeyHomePostcode)
	require.NoError(t, err)
	assert.Equal(t, "CV12 9JA", got)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	err := repo.WithTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		if _, err := tx.Venues().Create(ctx, "Rollback Venue", ""); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, err = repo.Venues().GetByName(ctx, "Rollback Venue")
	assert.ErrorIs(t, err, venues.ErrNotFound)
}
