package exports

import (
	"fmt"
	"os"
)

// Config locates the export directory.
type Config struct {
	Dir string `toml:"dir"`
}

// Env maps export config fields to environment variable names.
type Env struct {
	Dir string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.Dir == "" {
		c.Dir = "data/exports"
	}
	if env != nil && env.Dir != "" {
		if v := os.Getenv(env.Dir); v != "" {
			c.Dir = v
		}
	}
	if c.Dir == "" {
		return fmt.Errorf("exports dir required")
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Dir != "" {
		c.Dir = overlay.Dir
	}
}
