// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the dashboard service configuration.
//
// Configuration is an explicitly constructed value passed into the
// components that need it; there is no lazy global. Load creates a default
// file on first run so a bare checkout works out of the box.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/stackdash/stackdash/services/dashboard/setup"
)

// DefaultPath is the config location used when STACKDASH_CONFIG is unset:
// ~/.stackdash/stackdash.yaml.
func DefaultPath() (string, error) {
	if p := os.Getenv("STACKDASH_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".stackdash", "stackdash.yaml"), nil
}

// ServiceConfig declares one dependent service to monitor.
type ServiceConfig struct {
	ID       string `yaml:"id" validate:"required"`
	Name     string `yaml:"name" validate:"required"`
	Endpoint string `yaml:"endpoint" validate:"required,url"`
	// Tier is "infrastructure" or "frontend".
	Tier string `yaml:"tier" validate:"required,oneof=infrastructure frontend"`
	// TimeoutMs overrides the default probe timeout, 0 means default.
	TimeoutMs int `yaml:"timeout_ms" validate:"gte=0"`
}

// Config is the dashboard service configuration.
type Config struct {
	// Port the HTTP API listens on.
	Port int `yaml:"port" validate:"required,gt=0,lte=65535"`

	// ProbeTimeoutMs is the hard per-probe deadline.
	ProbeTimeoutMs int `yaml:"probe_timeout_ms" validate:"required,gt=0"`

	// DegradedAfterMs is the latency budget separating operational from
	// degraded.
	DegradedAfterMs int `yaml:"degraded_after_ms" validate:"required,gt=0"`

	// Services is the monitored service list, declaration order.
	Services []ServiceConfig `yaml:"services" validate:"dive"`
}

// Default returns the stock configuration matching the compose defaults.
func Default() Config {
	cfg := Config{
		Port:            4000,
		ProbeTimeoutMs:  int(setup.DefaultProbeTimeout / time.Millisecond),
		DegradedAfterMs: int(setup.DefaultDegradedAfter / time.Millisecond),
	}
	for _, def := range setup.DefaultServiceDefinitions() {
		cfg.Services = append(cfg.Services, ServiceConfig{
			ID:       def.ID,
			Name:     def.Name,
			Endpoint: def.Endpoint,
			Tier:     string(def.Tier),
		})
	}
	return cfg
}

// Load reads and validates the configuration at path, creating the default
// file first when none exists.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(path); err != nil {
			return Config{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse the config file: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ServiceDefinitions converts the configured services into domain
// definitions, declaration order preserved.
func (c Config) ServiceDefinitions() []setup.ServiceDefinition {
	defs := make([]setup.ServiceDefinition, len(c.Services))
	for i, s := range c.Services {
		defs[i] = setup.ServiceDefinition{
			ID:       s.ID,
			Name:     s.Name,
			Endpoint: s.Endpoint,
			Tier:     setup.ServiceTier(s.Tier),
			Timeout:  time.Duration(s.TimeoutMs) * time.Millisecond,
		}
	}
	return defs
}

// ProbeTimeout returns the probe deadline as a duration.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMs) * time.Millisecond
}

// DegradedAfter returns the latency budget as a duration.
func (c Config) DegradedAfter() time.Duration {
	return time.Duration(c.DegradedAfterMs) * time.Millisecond
}

func writeDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
