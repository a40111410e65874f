// Package config defines process configuration and its loading.
//
// Values are layered: defaults from New, then an optional YAML file, then
// environment variables prefixed with JCI_.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogJSON switches log output to JSON lines.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// MaxLeaderboardLimit caps GET /leaderboard?limit and row listings.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// WorkerCount sets the number of region workers.
	WorkerCount int `koanf:"worker_count"`
	// QueueSize bounds the region task queue.
	QueueSize int `koanf:"queue_size"`

	// Rounds is the number of synchronous iteration rounds.
	Rounds int `koanf:"rounds"`
	// Tolerance enables early stopping when positive. It changes output values.
	Tolerance float64 `koanf:"tolerance"`
	// FailFast aborts the run on the first region error instead of skipping the region.
	FailFast bool `koanf:"fail_fast"`

	// IncludeNational computes national scopes.
	IncludeNational bool `koanf:"include_national"`
	// NationalName is the region name used for national rows.
	NationalName string `koanf:"national_name"`
	// States and Metros restrict and order the computed regions. Empty means all.
	States []string `koanf:"states"`
	Metros []string `koanf:"metros"`
	// MaxStates and MaxMetros cap the number of discovered regions. 0 means no cap.
	MaxStates int `koanf:"max_states"`
	MaxMetros int `koanf:"max_metros"`

	// Input tables.
	JobsPaths       []string `koanf:"jobs_paths"`
	RelatednessPath string   `koanf:"relatedness_path"`
	JobMetaPath     string   `koanf:"job_meta_path"`
	TaskMetaPath    string   `koanf:"task_meta_path"`

	// OutputDir receives the output tables and the run manifest.
	OutputDir string `koanf:"output_dir"`
	// Compress writes gzip output tables.
	Compress bool `koanf:"compress"`

	// DatabasePath is the sqlite result store. Empty disables storing runs.
	DatabasePath string `koanf:"database_path"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		ShutdownTimeout:     10 * time.Second,
		MaxLeaderboardLimit: 100,
		WorkerCount:         runtime.NumCPU(),
		QueueSize:           1024,
		Rounds:              20,
		IncludeNational:     true,
		NationalName:        "United States",
		OutputDir:           "output",
		DatabasePath:        "jci.db",
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Rounds < 0:
		return fmt.Errorf("%w: rounds must be >= 0, got %d", ErrInvalidConfig, c.Rounds)
	case c.Tolerance < 0:
		return fmt.Errorf("%w: tolerance must be >= 0, got %v", ErrInvalidConfig, c.Tolerance)
	case c.MaxStates < 0 || c.MaxMetros < 0:
		return fmt.Errorf("%w: max_states and max_metros must be >= 0", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be >= 1", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be >= 1", ErrInvalidConfig)
	}
	return nil
}
