package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger builds the process-wide logger from LoggingConfig. JSON lines by
// default; format "console" switches to human-readable output for local
// parser development. Unrecognized levels fall back to info rather than
// failing startup.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	// Keep the zerolog global in step for code that logs without an
	// injected logger.
	log.Logger = logger
	return logger
}
