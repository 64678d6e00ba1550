// Package config loads the optional pacmirror YAML configuration file.
// Command-line flags override anything set here.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	SourceURL   string   `yaml:"source_url"`
	TargetRepo  string   `yaml:"target_repo"`
	Mirrors     int      `yaml:"mirrors"`
	MaxCheck    int      `yaml:"max_check"`
	Threads     int      `yaml:"threads"`
	OutputFile  string   `yaml:"output_file"`
	StatsFile   string   `yaml:"stats_file"`
	HistoryDB   string   `yaml:"history_db"`
	Exclude     []string `yaml:"exclude"`
	ExcludeFrom string   `yaml:"exclude_from"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		SourceURL:  "https://www.archlinux.org/mirrors/status/json/",
		TargetRepo: "community",
		Mirrors:    10,
		MaxCheck:   100,
		Threads:    5,
	}
}

// Load reads a config file and merges it over the defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// FindConfigFile looks for a config file in the standard locations.
func FindConfigFile(fs afero.Fs) (string, error) {
	var candidates []string
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "pacmirror", "pacmirror.yaml"))
	}
	candidates = append(candidates, "/etc/pacmirror/pacmirror.yaml", "pacmirror.yaml")

	for _, c := range candidates {
		if ok, err := afero.Exists(fs, c); err == nil && ok {
			return c, nil
		}
	}
	return "", fmt.Errorf("no config file found in standard locations")
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.SourceURL == "" {
		return fmt.Errorf("source_url must not be empty")
	}
	if c.Mirrors <= 0 {
		return fmt.Errorf("mirrors must be positive, got %d", c.Mirrors)
	}
	if c.MaxCheck < 0 {
		return fmt.Errorf("max_check must be zero (unlimited) or positive, got %d", c.MaxCheck)
	}
	if c.Threads <= 0 {
		return fmt.Errorf("threads must be positive, got %d", c.Threads)
	}
	return nil
}
