package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPaths []string // hcl files or directories

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	// MaxJobs overrides run.max_concurrent_jobs when positive.
	MaxJobs int
	// DryRun prints the plan and simulates the run without writing or
	// executing anything.
	DryRun bool
}

func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ConfigPaths) == 0 {
		return nil, errors.New("a configuration path is required")
	}
	if cfg.MaxJobs < 0 {
		return nil, fmt.Errorf("max-jobs must not be negative, got %d", cfg.MaxJobs)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("healthcheck-port out of range: %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
