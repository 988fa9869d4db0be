// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of New().
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Store drivers understood by the service.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the event store: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`

	// SQLitePath is the database file used when StoreDriver is sqlite.
	SQLitePath string `koanf:"sqlite_path"`

	// WorkStartHour and WorkEndHour bound the default daily search window.
	WorkStartHour int `koanf:"work_start_hour"`
	WorkEndHour   int `koanf:"work_end_hour"`

	// MinDurationMinutes is the default minimum slot length.
	MinDurationMinutes int `koanf:"min_duration_minutes"`

	// RangeDays is the default number of days searched after today.
	RangeDays int `koanf:"range_days"`

	// FanoutLimit bounds concurrent member reads and writes.
	FanoutLimit int `koanf:"fanout_limit"`

	// WriteQueueSize bounds pending materialization writes.
	WriteQueueSize int `koanf:"write_queue_size"`

	// DedupeSize sets how many idempotency keys are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// ReadTimeoutMS bounds a whole availability computation; 0 disables it.
	ReadTimeoutMS int `koanf:"read_timeout_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		StoreDriver:        StoreMemory,
		SQLitePath:         "rendezvous.db",
		WorkStartHour:      9,
		WorkEndHour:        21,
		MinDurationMinutes: 60,
		RangeDays:          7,
		FanoutLimit:        8,
		WriteQueueSize:     1024,
		DedupeSize:         10_000,
		ReadTimeoutMS:      5_000,
	}
}

// ReadTimeout returns ReadTimeoutMS as a duration.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WorkStartHour < 0 || c.WorkEndHour > 24 || c.WorkStartHour >= c.WorkEndHour:
		return fmt.Errorf("%w: work hours %d-%d must satisfy 0 <= start < end <= 24",
			ErrInvalidConfig, c.WorkStartHour, c.WorkEndHour)
	case c.MinDurationMinutes <= 0:
		return fmt.Errorf("%w: min_duration_minutes must be positive", ErrInvalidConfig)
	case c.RangeDays < 0:
		return fmt.Errorf("%w: range_days must not be negative", ErrInvalidConfig)
	case c.FanoutLimit <= 0:
		return fmt.Errorf("%w: fanout_limit must be positive", ErrInvalidConfig)
	case c.WriteQueueSize <= 0:
		return fmt.Errorf("%w: write_queue_size must be positive", ErrInvalidConfig)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative", ErrInvalidConfig)
	case c.ReadTimeoutMS < 0:
		return fmt.Errorf("%w: read_timeout_ms must not be negative", ErrInvalidConfig)
	}

	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite_path is required for the sqlite store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	return nil
}
