package rez

import (
	"os"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Config carries everything a resolve needs from its environment:
// repository search paths, the context cache location, and search budgets.
// It is passed explicitly to Resolver construction; nothing in this module
// reads ambient process state.
type Config struct {
	// PackagesPath lists package repository roots, highest priority first.
	PackagesPath []string `toml:"packages_path"`

	// CachePath locates the resolved-context cache database. Empty
	// disables caching.
	CachePath string `toml:"cache_path"`

	// MaxDecisions caps the solver's committed atoms per resolve. Zero
	// means unbounded.
	MaxDecisions int `toml:"max_decisions"`

	// TimeoutSeconds bounds a resolve's wall-clock duration. Zero means
	// unbounded.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Timeout returns the configured resolve deadline as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DefaultConfig returns the zero-budget, cache-less configuration.
func DefaultConfig() *Config {
	return &Config{}
}

// LoadConfig reads a TOML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	c := DefaultConfig()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	return c, nil
}
