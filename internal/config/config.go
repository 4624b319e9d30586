// Package config holds the CLI-level configuration. None of it changes
// reduction semantics, it only controls logging and terminal output.
package config

import (
	"os"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"github.com/preiter93/cargo-reduce-recipe/internal/ui"
)

// Config is the resolved CLI configuration.
type Config struct {
	// Verbosity 0 = warnings, 1 = info, 2 = debug, 3 = trace.
	Verbosity int  `envconfig:"verbosity"`
	NoColor   bool `envconfig:"no_color"`

	Version string       `ignored:"true"`
	Logger  hclog.Logger `ignored:"true"`
}

// New reads configuration from the REDUCE_* environment and attaches a
// logger. Flag values are bound on top by the command layer.
func New(version string) (*Config, error) {
	cfg := &Config{Version: version}
	if err := envconfig.Process("reduce", cfg); err != nil {
		return nil, errors.Wrap(err, "invalid environment variable")
	}
	return cfg, nil
}

// AttachLogger builds the named hclog logger for the configured verbosity.
func (c *Config) AttachLogger(name string) {
	if c.NoColor {
		color.NoColor = true
	}
	c.Logger = hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  c.logLevel(),
		Color:  c.logColor(),
		Output: os.Stderr,
	})
}

func (c *Config) logLevel() hclog.Level {
	switch {
	case c.Verbosity >= 3:
		return hclog.Trace
	case c.Verbosity == 2:
		return hclog.Debug
	case c.Verbosity == 1:
		return hclog.Info
	default:
		return hclog.Warn
	}
}

func (c *Config) logColor() hclog.ColorOption {
	if c.NoColor || !ui.IsTTY {
		return hclog.ColorOff
	}
	return hclog.AutoColor
}
