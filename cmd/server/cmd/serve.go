package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/equiscan/server/internal/api"
	"github.com/equiscan/server/internal/config"
	"github.com/equiscan/server/internal/jobs"
)

var (
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server, scheduler, and scan workers",
	Long: `Run the HTTP API together with the River job workers and the daily
scan schedule. Scans left pending or running by a previous process are
failed at startup; the queue state lives in Postgres, so a single
instance is all the scheduler needs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Msg("starting equiscan")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	app, err := buildApp(ctx, cfg, logger)
	cancel()
	if err != nil {
		return err
	}
	defer app.close()

	// Scans orphaned by a crash or redeploy never finish on their own.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 10*time.Second)
	stale, err := app.repo.Scans().FailStale(startupCtx, "interrupted by restart")
	startupCancel()
	if err != nil {
		return fmt.Errorf("failing stale scans: %w", err)
	}
	if stale > 0 {
		logger.Warn().Int64("scans", stale).Msg("failed scans interrupted by restart")
	}

	// River keeps its queue tables in the same database; its migrations
	// are separate from ours.
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = jobs.Migrate(migrateCtx, app.pool)
	migrateCancel()
	if err != nil {
		return err
	}

	workers := jobs.NewWorkers(app.repo, app.runner, logger)
	periodicJobs := jobs.NewPeriodicJobs(cfg.Scan.Schedule)
	riverLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	riverClient, err := jobs.NewClient(app.pool, workers, riverLogger, cfg.Scan.Concurrency, periodicJobs)
	if err != nil {
		return fmt.Errorf("creating river client: %w", err)
	}

	riverCtx, riverCancel := context.WithCancel(context.Background())
	defer riverCancel()
	if err := riverClient.Start(riverCtx); err != nil {
		return fmt.Errorf("river workers failed to start: %w", err)
	}
	logger.Info().Str("schedule", cfg.Scan.Schedule).Int("concurrency", cfg.Scan.Concurrency).
		Msg("scan workers started")
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			logger.Error().Err(err).Msg("scan workers shutdown error")
		} else {
			logger.Info().Msg("scan workers stopped")
		}
	}()

	router := api.NewRouter(api.Deps{
		Repo:     app.repo,
		Geocoder: app.geocoder,
		Queue:    riverClient,
		PingDB:   app.pool.Ping,
		Env:      cfg.Environment,
		Logger:   logger,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	return gracefulShutdown(server, logger)
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
