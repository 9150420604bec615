// Package config loads core configuration from environment variables.
package config

import (
	"log/slog"
	"os"
	"time"
)

// UnsafeDefaultSecret is the development fallback signing secret. It must
// never reach production; Load logs a warning whenever it is in effect.
const UnsafeDefaultSecret = "default-secret-change-in-production"

// DefaultFreshnessMaxAge is the staleness threshold applied when
// TRUTHSERUM_FRESHNESS_MAX_AGE is unset.
const DefaultFreshnessMaxAge = 24 * time.Hour

// Config holds core configuration.
type Config struct {
	// SigningSecret is the shared HMAC secret for verification signatures
	// and receipt attestations.
	SigningSecret string
	// FreshnessMaxAge is the threshold beyond which data is flagged stale.
	FreshnessMaxAge time.Duration
	LogLevel        string
}

// Load reads configuration from environment variables.
func Load() *Config {
	secret := os.Getenv("TRUTHSERUM_SECRET")
	if secret == "" {
		secret = UnsafeDefaultSecret
		slog.Warn("TRUTHSERUM_SECRET not set, using unsafe default secret",
			"component", "config")
	}

	maxAge := DefaultFreshnessMaxAge
	if raw := os.Getenv("TRUTHSERUM_FRESHNESS_MAX_AGE"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			slog.Warn("invalid TRUTHSERUM_FRESHNESS_MAX_AGE, using default",
				"component", "config", "value", raw)
		} else {
			maxAge = d
		}
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	return &Config{
		SigningSecret:   secret,
		FreshnessMaxAge: maxAge,
		LogLevel:        logLevel,
	}
}

// UsingUnsafeSecret reports whether the development fallback secret is active.
func (c *Config) UsingUnsafeSecret() bool {
	return c.SigningSecret == UnsafeDefaultSecret
}
