package kv

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the embedded key-value store location.
type Config struct {
	Path     string `toml:"path"`
	InMemory bool   `toml:"in_memory"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Path     string
	InMemory string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
	if overlay.InMemory {
		c.InMemory = true
	}
}

func (c *Config) loadDefaults() {
	if c.Path == "" && !c.InMemory {
		c.Path = "data/kv"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Path != "" {
		if v := os.Getenv(env.Path); v != "" {
			c.Path = v
		}
	}
	if env.InMemory != "" {
		if v := os.Getenv(env.InMemory); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.InMemory = b
			}
		}
	}
}

func (c *Config) validate() error {
	if !c.InMemory && c.Path == "" {
		return fmt.Errorf("path required unless in_memory")
	}
	return nil
}
