package app

import (
	"errors"
	"fmt"
)

// DefaultTask is run when no task is named.
const DefaultTask = "default"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GridPath string // Gridfile or directory of .hcl files
	BaseDir  string // project root; empty means the Gridfile's directory
	Tasks    []string

	Force   bool
	NoColor bool
	List    bool

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	Workers         int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.GridPath == "" {
		return nil, errors.New("GridPath is a required configuration field and cannot be empty")
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("healthcheck-port must be between 0 and 65535, got %d", cfg.HealthcheckPort)
	}
	if len(cfg.Tasks) == 0 {
		cfg.Tasks = []string{DefaultTask}
	}
	return &cfg, nil
}
