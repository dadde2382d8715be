// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"runtime"
	"slices"
)

// Store backends accepted by the Store field.
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFile, when set, adds a rotated file sink next to stdout.
	LogFile string `koanf:"log_file"`
	LogJSON bool   `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the backend: memory or mongo.
	Store          string `koanf:"store"`
	MongoURI       string `koanf:"mongo_uri"`
	MongoDatabase  string `koanf:"mongo_database"`
	MongoTimeoutMS int    `koanf:"mongo_timeout_ms"`

	// BreakerThreshold is the number of consecutive store failures that
	// opens the breaker; BreakerTimeoutMS is how long it stays open.
	BreakerThreshold int `koanf:"breaker_threshold"`
	BreakerTimeoutMS int `koanf:"breaker_timeout_ms"`

	// QueueSize bounds the asynchronous allocation job queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of allocation workers.
	WorkerCount  int `koanf:"worker_count"`
	JobTimeoutMS int `koanf:"job_timeout_ms"`
	// JobHistory caps how many finished jobs stay queryable.
	JobHistory int `koanf:"job_history"`

	// MaxConcurrentPasses caps passes running at once across events; 0 is unbounded.
	MaxConcurrentPasses int `koanf:"max_concurrent_passes"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		Store:            StoreMemory,
		MongoDatabase:    "taskforce",
		MongoTimeoutMS:   5_000,
		BreakerThreshold: 5,
		BreakerTimeoutMS: 10_000,
		QueueSize:        1_024,
		WorkerCount:      runtime.NumCPU(),
		JobTimeoutMS:     30_000,
		JobHistory:       1_000,
	}
}

// Validate checks the fields Load cannot default its way out of.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if !slices.Contains([]string{StoreMemory, StoreMongo}, c.Store) {
		return fmt.Errorf("%w: store must be %q or %q, got %q", ErrInvalidConfig, StoreMemory, StoreMongo, c.Store)
	}
	if c.Store == StoreMongo && c.MongoURI == "" {
		return fmt.Errorf("%w: mongo_uri is required when store is %q", ErrInvalidConfig, StoreMongo)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	if c.JobHistory < 1 {
		return fmt.Errorf("%w: job_history must be positive", ErrInvalidConfig)
	}
	if c.BreakerThreshold < 1 {
		return fmt.Errorf("%w: breaker_threshold must be positive", ErrInvalidConfig)
	}
	if c.BreakerTimeoutMS < 1 {
		return fmt.Errorf("%w: breaker_timeout_ms must be positive", ErrInvalidConfig)
	}
	return nil
}
