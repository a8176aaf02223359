// Copyright 2025 gRPC authors.
// SPDX-License-Identifier: Apache-2.0

// Package config loads osrm-datastore's configuration from a YAML file and
// lets CLI flags override individual fields on top of it. The file is
// optional; every field has a usable default so the tool runs with just
// flags or just a base path argument.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full osrm-datastore configuration.
type Config struct {
	// Base is the path prefix every .osrm.* input is derived from, e.g.
	// "/data/berlin-latest" reads "/data/berlin-latest.osrm.names" and so
	// on. Required; has no default.
	Base string `yaml:"base"`

	// MaxWaitSeconds bounds how long a publish waits to acquire the
	// Monitor mutex before treating it as stuck and force-recovering it.
	MaxWaitSeconds int `yaml:"max_wait_seconds"`

	// DetachPollInterval is how often WaitForDetach rechecks whether
	// clients have released the previous region.
	DetachPollInterval time.Duration `yaml:"detach_poll_interval"`

	// MetricsAddr, if non-empty, serves Prometheus metrics on this
	// address (e.g. ":9327"). Empty disables the metrics server.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel is one of: trace, debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFormat is either "console" (human-readable) or "json".
	LogFormat string `yaml:"log_format"`
}

// Default returns a Config with every field set to a usable value except
// Base, which has no sensible default and must come from a flag, the
// config file, or a positional argument.
func Default() *Config {
	return &Config{
		MaxWaitSeconds:     60,
		DetachPollInterval: 250 * time.Millisecond,
		MetricsAddr:        "",
		LogLevel:           "info",
		LogFormat:          "console",
	}
}

// LoadFile reads path and merges it over Default(). A missing file is not
// an error: callers that only want flag-driven configuration can pass an
// empty path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields that must be set before a publish can run.
func (c *Config) Validate() error {
	if c.Base == "" {
		return fmt.Errorf("base path is required (set it via --base, the positional argument, or config file)")
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log_format %q", c.LogFormat)
	}
	if c.MaxWaitSeconds <= 0 {
		return fmt.Errorf("max_wait_seconds must be positive")
	}
	if c.DetachPollInterval <= 0 {
		return fmt.Errorf("detach_poll_interval must be positive")
	}
	return nil
}
