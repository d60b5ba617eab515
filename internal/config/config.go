// Package config loads gauntlet.yml and validates run settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"github.com/spf13/afero"
	"github.com/wizzomafizzo/gauntlet/internal/constants"
	"github.com/wizzomafizzo/gauntlet/internal/core/engine/registry"
	"github.com/wizzomafizzo/gauntlet/internal/logging"
	"github.com/wizzomafizzo/gauntlet/internal/report"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Output      string  `yaml:"output"`
	Format      string  `yaml:"format"`
	Order       string  `yaml:"order"`
	MetricsFile string  `yaml:"metrics_file,omitempty"`
	Logging     Logging `yaml:"logging"`
	Color       bool    `yaml:"color"`
	Report      bool    `yaml:"report"`
}

type Logging struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path,omitempty"`
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{
		Output:  constants.StdoutOutput,
		Format:  report.DefaultFormat,
		Order:   "defined",
		Logging: Logging{Level: "info"},
	}
}

// Load reads path from fs. A missing file yields the defaults.
func Load(fsys afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return LoadFromYAML(data)
}

// LoadFromYAML parses data over the defaults and validates the result.
func LoadFromYAML(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks the format, order and log level.
func (c *Config) Validate() error {
	if !slices.Contains(report.Names(), c.Format) {
		return fmt.Errorf("%w: format %q must be one of %v", ErrInvalidConfig, c.Format, report.Names())
	}
	if _, err := c.Ordering(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Ordering parses the order setting.
func (c *Config) Ordering() (registry.Ordering, error) {
	return registry.ParseOrdering(c.Order)
}
