// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// the iCress portal endpoints, cache TTLs, and server settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	domerrors "github.com/uitmtimetable/icress-linebot-go/internal/errors"
)

// Config holds all application configuration
type Config struct {
	// LINE Bot Configuration
	LineChannelToken  string
	LineChannelSecret string

	// iCress Portal Configuration
	IcressURL         string        // Base URL of the class timetable portal (trailing slash)
	IcressRefererURL  string        // Referer header value required by the course search route
	DisplayTimezone   string        // Timezone used to materialize timetable times
	PortalTimeout     time.Duration // Hard timeout applied to every portal request
	DirectoryCacheTTL time.Duration // TTL for campus/faculty/course directory data
	TimetableCacheTTL time.Duration // TTL for per-course timetable data

	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	WebhookTimeout  time.Duration // Timeout for processing one webhook event

	// Data Configuration
	DataDir string // Data directory for the SQLite database

	// Observability (optional)
	BetterstackToken  string // Better Stack log source token (empty = local logs only)
	SentryToken       string // Better Stack Errors token (empty = sentry disabled)
	SentryHost        string // Better Stack Errors ingesting host
	SentryEnvironment string
}

// Load reads configuration from environment variables.
// It attempts to load a .env file first, then reads from env vars.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		LineChannelToken:  getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),
		LineChannelSecret: getEnv("LINE_CHANNEL_SECRET", ""),

		IcressURL:         getEnv("ICRESS_URL", "https://simsweb4.uitm.edu.my/estudent/class_timetable/"),
		IcressRefererURL:  getEnv("ICRESS_REFERER_URL", "https://simsweb4.uitm.edu.my/estudent/class_timetable/index.htm"),
		DisplayTimezone:   getEnv("DISPLAY_TIMEZONE", "Asia/Kuala_Lumpur"),
		PortalTimeout:     getDurationEnv("PORTAL_TIMEOUT", 30*time.Second),
		DirectoryCacheTTL: getDurationEnv("DIRECTORY_CACHE_TTL", 30*24*time.Hour), // 1 month
		TimetableCacheTTL: getDurationEnv("TIMETABLE_CACHE_TTL", 24*time.Hour),    // 1 day

		Port:            getEnv("PORT", "10000"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		WebhookTimeout:  getDurationEnv("WEBHOOK_TIMEOUT", 60*time.Second),

		DataDir: getEnv("DATA_DIR", getDefaultDataDir()),

		BetterstackToken:  getEnv("BETTERSTACK_TOKEN", ""),
		SentryToken:       getEnv("SENTRY_TOKEN", ""),
		SentryHost:        getEnv("SENTRY_HOST", ""),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", "production"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set.
// Every failure is a ValidationError, so the joined result satisfies
// errors.Is(err, domerrors.ErrInvalidInput).
func (c *Config) Validate() error {
	var errs []error

	if c.LineChannelToken == "" {
		errs = append(errs, domerrors.NewValidationError("LINE_CHANNEL_ACCESS_TOKEN", "is required"))
	}
	if c.LineChannelSecret == "" {
		errs = append(errs, domerrors.NewValidationError("LINE_CHANNEL_SECRET", "is required"))
	}
	if c.Port == "" {
		errs = append(errs, domerrors.NewValidationError("PORT", "is required"))
	}
	if c.IcressURL == "" {
		errs = append(errs, domerrors.NewValidationError("ICRESS_URL", "is required"))
	} else if !strings.HasSuffix(c.IcressURL, "/") {
		errs = append(errs, domerrors.NewValidationError("ICRESS_URL", "must end with a trailing slash"))
	}
	if c.DataDir == "" {
		errs = append(errs, domerrors.NewValidationError("DATA_DIR", "is required"))
	}
	if c.PortalTimeout <= 0 {
		errs = append(errs, domerrors.NewValidationError("PORTAL_TIMEOUT", fmt.Sprintf("must be positive, got %v", c.PortalTimeout)))
	}
	if c.DirectoryCacheTTL <= 0 {
		errs = append(errs, domerrors.NewValidationError("DIRECTORY_CACHE_TTL", fmt.Sprintf("must be positive, got %v", c.DirectoryCacheTTL)))
	}
	if c.TimetableCacheTTL <= 0 {
		errs = append(errs, domerrors.NewValidationError("TIMETABLE_CACHE_TTL", fmt.Sprintf("must be positive, got %v", c.TimetableCacheTTL)))
	}
	if _, err := time.LoadLocation(c.DisplayTimezone); err != nil {
		errs = append(errs, domerrors.NewValidationError("DISPLAY_TIMEZONE", fmt.Sprintf("invalid timezone: %v", err)))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "icress.db")
}

// Location returns the display timezone as a *time.Location.
// Validate guarantees the name loads; the UTC fallback only covers
// a Config constructed without Load.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
