// Package config loads defclean defaults from an optional YAML file.
// Command-line flags take precedence over anything set here.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jward/defclean/internal/search"
)

// Config holds the tunable scan settings.
type Config struct {
	Ascend     int      `yaml:"ascend"`
	SourceRoot string   `yaml:"source_root"`
	Match      string   `yaml:"match"`
	SkipDirs   []string `yaml:"skip_dirs"`
	Jobs       int      `yaml:"jobs"`
	Format     string   `yaml:"format"`
	DB         string   `yaml:"db"`
	Classifier string   `yaml:"classifier"`
}

// BuiltinPrefix marks a classifier embedded in the binary rather than a path.
const BuiltinPrefix = "builtin:"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Ascend: 4,
		Match:  string(search.ModeSubstring),
		Jobs:   1,
		Format: "text",
	}
}

// Load reads configPath over the defaults. Relative source_root, db and
// classifier paths are resolved against the config file's directory.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigFileParse, err)
	}

	base := filepath.Dir(configPath)
	cfg.SourceRoot = resolveRelative(base, cfg.SourceRoot)
	cfg.DB = resolveRelative(base, cfg.DB)
	if !strings.HasPrefix(cfg.Classifier, BuiltinPrefix) {
		cfg.Classifier = resolveRelative(base, cfg.Classifier)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Ascend < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAscend, c.Ascend)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidJobs, c.Jobs)
	}
	if _, err := search.ParseMode(c.Match); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMatch, err)
	}
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q must be text or json", ErrInvalidFormat, c.Format)
	}
	return nil
}

func resolveRelative(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
