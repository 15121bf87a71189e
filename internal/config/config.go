// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fruitsalade/attachments/internal/binding"
)

// Config holds the attachment service configuration.
type Config struct {
	// Logging
	LogLevel  string
	LogFormat string

	// Metrics
	MetricsAddr string

	// Credential bindings. BindingsFile wins over VCAP_SERVICES when both are set.
	VCAPServices string
	BindingsFile string

	// Pending upload journal (optional; in-memory when empty)
	DatabaseURL string

	// Uploads older than this without a committed transaction are swept.
	OrphanMaxAge time.Duration

	// Detect mime types from content when a client sends none.
	SniffMediaTypes bool
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:        envOr("LOG_LEVEL", "info"),
		LogFormat:       envOr("LOG_FORMAT", "json"),
		MetricsAddr:     envOr("METRICS_ADDR", ":9090"),
		VCAPServices:    envOr("VCAP_SERVICES", ""),
		BindingsFile:    envOr("BINDINGS_FILE", ""),
		DatabaseURL:     envOr("DATABASE_URL", ""),
		OrphanMaxAge:    envDuration("ORPHAN_MAX_AGE", time.Hour),
		SniffMediaTypes: envBool("SNIFF_MEDIA_TYPES", true),
	}

	if cfg.OrphanMaxAge <= 0 {
		return nil, fmt.Errorf("ORPHAN_MAX_AGE must be positive")
	}

	return cfg, nil
}

// Bindings returns the configured credential bindings.
func (c *Config) Bindings() ([]binding.Binding, error) {
	if c.BindingsFile != "" {
		return binding.LoadFile(c.BindingsFile)
	}
	return binding.ParseVCAP([]byte(c.VCAPServices))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
