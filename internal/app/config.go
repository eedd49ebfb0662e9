package app

import (
	"errors"
	"fmt"
	"strings"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigFile string   // experiment YAML, handed to every tool as --cfg
	Overrides  []string // KEY VALUE pairs applied on top of ConfigFile
	Workers    int
	ToolsDir   string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	NotifyURL       string
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigFile == "" {
		return nil, errors.New("ConfigFile is a required configuration field and cannot be empty")
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", cfg.Workers)
	}
	if cfg.ToolsDir == "" {
		return nil, errors.New("ToolsDir is a required configuration field and cannot be empty")
	}
	if len(cfg.Overrides)%2 != 0 {
		return nil, fmt.Errorf("configuration overrides must be KEY VALUE pairs, got %d arguments", len(cfg.Overrides))
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Overrides = append([]string(nil), cfg.Overrides...)
	return &cfg, nil
}
