// Package config loads server configuration from a YAML file, applying
// defaults for anything unset. The zero config is usable: Default() returns a
// config that serves on :8080 with a database under the user data directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/gdprscanner/gdprscan/internal/board"
	"github.com/gdprscanner/gdprscan/internal/capture"
)

// Config is the full server configuration.
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr string `yaml:"addr"`

	// DatabasePath is the SQLite file backing scan history. Empty resolves
	// to gdprscan/scans.db under the XDG data directory.
	DatabasePath string `yaml:"database_path"`

	// ScanTimeout bounds a single server-side scan, capture included.
	ScanTimeout time.Duration `yaml:"scan_timeout"`

	// Capture configures how pages are fetched for server-side scans.
	Capture capture.Config `yaml:"capture"`

	// Board configures the optional task-board monitor.
	Board board.Config `yaml:"board"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Addr:        ":8080",
		ScanTimeout: 60 * time.Second,
		Capture: capture.Config{
			Backend:     capture.BackendNetHTTP,
			Timeout:     capture.DefaultTimeout,
			UserAgent:   capture.DefaultUserAgent,
			MaxBodySize: capture.DefaultMaxBodySize,
		},
	}
}

// Load reads a YAML config file and overlays it on the defaults. An empty
// path returns Default() unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr must not be empty")
	}
	if c.ScanTimeout <= 0 {
		return errors.New("config: scan_timeout must be positive")
	}
	switch c.Capture.Backend {
	case capture.BackendNetHTTP, capture.BackendChromeDP, "":
	default:
		return fmt.Errorf("config: unknown capture backend %q", c.Capture.Backend)
	}
	return nil
}

// ResolveDatabasePath returns the configured database path, or the default
// location under the XDG data directory, creating parent directories.
func (c *Config) ResolveDatabasePath() (string, error) {
	if c.DatabasePath != "" {
		if err := os.MkdirAll(filepath.Dir(c.DatabasePath), 0o755); err != nil {
			return "", fmt.Errorf("config: create database dir: %w", err)
		}
		return c.DatabasePath, nil
	}
	path, err := xdg.DataFile(filepath.Join("gdprscan", "scans.db"))
	if err != nil {
		return "", fmt.Errorf("config: resolve data dir: %w", err)
	}
	return path, nil
}
