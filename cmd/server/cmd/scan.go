package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/equiscan/server/internal/config"
	"github.com/equiscan/server/internal/domain/scans"
	"github.com/equiscan/server/internal/domain/sources"
)

var scanSourceKey string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a scan from the command line",
	Long: `Run one scan synchronously, without going through the job queue.
With --source it scans that source; without, every enabled source in
turn. Useful when developing a parser or backfilling after downtime.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd.Context())
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanSourceKey, "source", "", "source key to scan (default: all enabled)")
}

func runScan(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger := config.NewLogger(cfg.Logging)

	buildCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	app, err := buildApp(buildCtx, cfg, logger)
	cancel()
	if err != nil {
		return err
	}
	defer app.close()

	var targets []sources.Source
	if scanSourceKey != "" {
		source, err := app.repo.Sources().GetByKey(ctx, scanSourceKey)
		if err != nil {
			if errors.Is(err, sources.ErrNotFound) {
				return fmt.Errorf("unknown source %q", scanSourceKey)
			}
			return err
		}
		targets = []sources.Source{*source}
	} else {
		targets, err = app.repo.Sources().ListEnabled(ctx)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			return fmt.Errorf("no enabled sources")
		}
	}

	for _, source := range targets {
		row, err := app.repo.Scans().Create(ctx, source.ID, scans.TriggerManual)
		if err != nil {
			return fmt.Errorf("creating scan for %s: %w", source.Key, err)
		}
		if err := app.runner.Run(ctx, row.ID, source.ID, scans.TriggerManual); err != nil {
			return fmt.Errorf("scanning %s: %w", source.Key, err)
		}
	}
	return nil
}
