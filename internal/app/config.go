package app

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string // pipeline hcl files
	ModulesPath  string // tool manifests

	// WorkDir is the root of the per-node work directories.
	WorkDir string
	// CacheDir persists the result cache. Empty keeps it in memory.
	CacheDir string
	// NoCache ignores cached results. Results of the run are still stored.
	NoCache bool
	// Inputs are pipeline input values as written on the command line.
	Inputs map[string]string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
}

// defaultConfig fills every field a caller left at its zero value.
var defaultConfig = Config{
	ModulesPath: "modules",
	WorkDir:     ".dagflow/work",
	LogFormat:   "text",
	LogLevel:    "info",
	WorkerCount: 10,
}

// NewConfig merges cfg with the defaults and validates the result.
func NewConfig(cfg Config) (*Config, error) {
	if err := mergo.Merge(&cfg, defaultConfig); err != nil {
		return nil, fmt.Errorf("failed to apply configuration defaults: %w", err)
	}

	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid log format %q, expected text or json", cfg.LogFormat)
	}
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("worker count must be positive, got %d", cfg.WorkerCount)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid health check port %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
