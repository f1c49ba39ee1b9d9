package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	sharedOnce      sync.Once
	sharedInitErr   error
	sharedContainer *postgres.PostgresContainer
	sharedPool      *pgxpool.Pool
	sharedDBURL     string
)

const sharedContainerName = "equiscan-storage-db"

func TestMain(m *testing.M) {
	code := m.Run()
	cleanupShared()
	os.Exit(code)
}

// setupPostgres returns a pool against a migrated, truncated database. The
// container is shared across the package's tests.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	initShared(t)
	resetDatabase(t, sharedPool)
	return sharedPool
}

func initShared(t *testing.T) {
	t.Helper()
	sharedOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		// Disable ryuk (resource reaper) to prevent premature container cleanup
		_ = os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

		container, err := postgres.Run(
			ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("equiscan"),
			postgres.WithUsername("equiscan"),
			postgres.WithPassword("equiscan_dev"),
			testcontainers.WithReuseByName(sharedContainerName),
			testcontainers.WithWaitStrategy(
				wait.ForListeningPort(nat.Port("5432/tcp")).WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			sharedInitErr = err
			return
		}
		sharedContainer = container

		dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			sharedInitErr = err
			return
		}
		sharedDBURL = dbURL

		if err := migrateWithRetry(dbURL, 10*time.Second); err != nil {
			sharedInitErr = err
			return
		}

		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			sharedInitErr = err
			return
		}
		sharedPool = pool
	})
	require.NoError(t, sharedInitErr)
	require.NotNil(t, sharedPool)
}

// migrateWithRetry covers the window where the container accepts TCP but the
// server is not ready for DDL yet.
func migrateWithRetry(dbURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var err error
	for {
		err = MigrateUp(dbURL)
		if err == nil || time.Now().After(deadline) {
			return err
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func resetDatabase(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()
	_, err := pool.Exec(ctx, `
TRUNCATE competitions, venue_aliases, venues, scans, sources, app_settings
RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

func cleanupShared() {
	if sharedPool != nil {
		sharedPool.Close()
	}
	if sharedContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = sharedContainer.Terminate(ctx)
	}
}
