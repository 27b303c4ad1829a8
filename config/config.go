// Package config loads the shared YAML configuration for the controller
// and the peripheral binary.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"ledlink/ledwire"
)

// Config holds all application configuration.
type Config struct {
	// DeviceName is the local name the peripheral advertises.
	DeviceName string `yaml:"device_name"`
	// ScanDwellSeconds is how long the controller scans before reporting.
	ScanDwellSeconds int `yaml:"scan_dwell_seconds"`
	// OSCListenAddr is the host:port the OSC bridge listens on.
	// Empty disables the bridge.
	OSCListenAddr string `yaml:"osc_listen_addr"`
	LogLevel      string `yaml:"log_level"`
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "ledlink", "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		DeviceName:       ledwire.DefaultLocalName,
		ScanDwellSeconds: 5,
		OSCListenAddr:    "127.0.0.1:9001",
		LogLevel:         "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.DeviceName == "" {
		return fmt.Errorf("device_name must not be empty")
	}

	if c.ScanDwellSeconds <= 0 {
		return fmt.Errorf("scan_dwell_seconds must be > 0, got %d", c.ScanDwellSeconds)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ScanDwell returns the scan dwell time as a duration.
func (c *Config) ScanDwell() time.Duration {
	return time.Duration(c.ScanDwellSeconds) * time.Second
}
