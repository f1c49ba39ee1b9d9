// Package cmd holds the server's command tree.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/equiscan/server/internal/config"
)

var (
	logLevel  string
	logFormat string

	rootCmd = &cobra.Command{
		Use:   "equiscan",
		Short: "EquiScan - UK equestrian competition aggregator",
		Long: `EquiScan scrapes UK equestrian listing sites on a daily schedule,
normalizes and classifies what it finds, resolves venues to a canonical
registry, geocodes them, and serves the merged calendar over a small
JSON API.

Commands:
  serve    run the API server, scheduler, and scan workers
  scan     run one scan from the command line
  setup    apply database migrations and seed data
  version  print build information`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd.RunE(cmd, args)
		},
	}
)

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}
