// Package config provides configuration management.
package config

import (
	"os"
	"strings"

	"azure-costs/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`

	// Debug contains diagnostic dump toggles
	Debug DebugConfig `json:"debug"`

	// SnapshotDir is where retrieval snapshots are cached
	SnapshotDir string `json:"snapshot_dir"`
}

// DebugConfig gates diagnostic file dumps. The toggles are read from the
// environment exactly once at startup and threaded into the fetcher and
// indexer constructors.
type DebugConfig struct {
	// Rest dumps upstream API bodies to numbered files
	Rest bool `json:"rest"`

	// Elastic dumps bulk requests and responses to numbered files
	Elastic bool `json:"elastic"`
}

// Default returns sensible defaults
func Default() Config {
	return Config{
		Logging:     logging.DefaultConfig(),
		SnapshotDir: ".",
	}
}

// FromEnv builds the configuration from environment toggles.
func FromEnv() Config {
	cfg := Default()
	cfg.Debug.Rest = envToggle("RestDebug")
	cfg.Debug.Elastic = envToggle("ElasticRestDebug")
	return cfg
}

func envToggle(name string) bool {
	return strings.TrimSpace(os.Getenv(name)) != ""
}
