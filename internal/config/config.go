package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Scan        ScanConfig
	Geocoder    GeocoderConfig
	Extractor   ExtractorConfig
	Logging     LoggingConfig
	Environment string
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MaxIdle        int
}

// ScanConfig controls the scan scheduler and orchestrator.
type ScanConfig struct {
	// HomePostcode is the origin for venue distance calculations.
	HomePostcode string
	// Schedule is the daily tick in 24-hour "HH:MM" local time.
	Schedule string
	// Concurrency bounds the number of simultaneous source scans.
	Concurrency int
	// TimeoutSeconds is the per-scan total time budget.
	TimeoutSeconds int
	// HTTPRatePerHost is the token-bucket refill rate for outbound
	// requests, per upstream host.
	HTTPRatePerHost float64
}

type GeocoderConfig struct {
	// PrimaryURL is the UK postcode directory endpoint (postcodes.io shape).
	PrimaryURL string
	// FallbackURL is the free-form geocoder endpoint (Nominatim shape).
	FallbackURL string
}

// ExtractorConfig points the generic fallback parser at an OpenAI-compatible
// chat completion endpoint (Ollama works).
type ExtractorConfig struct {
	URL   string
	Model string
}

type LoggingConfig struct {
	Level  string
	Format string
}

var scheduleRe = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConnections: getEnvInt("DATABASE_MAX_CONNECTIONS", 25),
			MaxIdle:        getEnvInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
		},
		Scan: ScanConfig{
			HomePostcode:    getEnv("HOME_POSTCODE", "SW1A 1AA"),
			Schedule:        getEnv("SCAN_SCHEDULE", "06:00"),
			Concurrency:     getEnvInt("SCAN_CONCURRENCY", 1),
			TimeoutSeconds:  getEnvInt("SCAN_TIMEOUT_SECONDS", 300),
			HTTPRatePerHost: getEnvFloat("HTTP_RATE_PER_HOST", 4.0),
		},
		Geocoder: GeocoderConfig{
			PrimaryURL:  getEnv("GEOCODER_PRIMARY_URL", "https://api.postcodes.io"),
			FallbackURL: getEnv("GEOCODER_FALLBACK_URL", "https://nominatim.openstreetmap.org"),
		},
		Extractor: ExtractorConfig{
			URL:   getEnv("GENERIC_EXTRACTOR_URL", "http://localhost:11434/v1"),
			Model: getEnv("GENERIC_EXTRACTOR_MODEL", "qwen2.5:1.5b"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if cfg.Database.URL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if !scheduleRe.MatchString(cfg.Scan.Schedule) {
		return Config{}, fmt.Errorf("SCAN_SCHEDULE must be HH:MM, got %q", cfg.Scan.Schedule)
	}
	if cfg.Scan.Concurrency < 1 {
		cfg.Scan.Concurrency = 1
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
