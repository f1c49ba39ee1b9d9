package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/equiscan/server/internal/config"
	"github.com/equiscan/server/internal/jobs"
	"github.com/equiscan/server/internal/seed"
	"github.com/equiscan/server/internal/storage/postgres"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Apply database migrations and seed data",
	Long: `Prepare the database: apply the application migrations, River's
queue migrations, and the embedded seed data (sources, known venues,
aliases). Safe to run repeatedly; everything it does is idempotent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup()
	},
}

func runSetup() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger := config.NewLogger(cfg.Logging)

	if err := postgres.MigrateUp(cfg.Database.URL); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	logger.Info().Msg("migrations applied")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	if err := jobs.Migrate(ctx, pool); err != nil {
		return err
	}
	logger.Info().Msg("queue migrations applied")

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("repository init failed: %w", err)
	}
	seeds, err := seed.Load()
	if err != nil {
		return fmt.Errorf("loading seed data: %w", err)
	}
	if err := seed.Apply(ctx, repo, seeds, logger); err != nil {
		return fmt.Errorf("applying seed data: %w", err)
	}
	logger.Info().Int("sources", len(seeds.Sources)).Int("venues", len(seeds.Venues)).
		Msg("seed data applied")
	return nil
}
