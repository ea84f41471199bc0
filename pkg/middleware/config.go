package middleware

import (
	"os"
	"strconv"
	"strings"
)

// CORSConfig holds the cross-origin policy for browser front ends calling the bridge.
type CORSConfig struct {
	Enabled          bool     `toml:"enabled"`
	Origins          []string `toml:"origins"`
	AllowedMethods   []string `toml:"allowed_methods"`
	AllowedHeaders   []string `toml:"allowed_headers"`
	AllowCredentials bool     `toml:"allow_credentials"`
	MaxAge           int      `toml:"max_age"`
}

// CORSEnv maps CORS config fields to environment variable names for override injection.
type CORSEnv struct {
	Enabled          string
	Origins          string
	AllowedMethods   string
	AllowedHeaders   string
	AllowCredentials string
	MaxAge           string
}

// Finalize applies defaults and environment variable overrides.
func (c *CORSConfig) Finalize(env *CORSEnv) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return nil
}

// Merge overwrites fields from overlay. Booleans always apply; lists and
// max age apply only when set.
func (c *CORSConfig) Merge(overlay *CORSConfig) {
	c.Enabled = overlay.Enabled
	c.AllowCredentials = overlay.AllowCredentials

	if overlay.Origins != nil {
		c.Origins = overlay.Origins
	}
	if overlay.AllowedMethods != nil {
		c.AllowedMethods = overlay.AllowedMethods
	}
	if overlay.AllowedHeaders != nil {
		c.AllowedHeaders = overlay.AllowedHeaders
	}
	if overlay.MaxAge > 0 {
		c.MaxAge = overlay.MaxAge
	}
}

func (c *CORSConfig) loadDefaults() {
	if len(c.AllowedMethods) == 0 {
		c.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(c.AllowedHeaders) == 0 {
		c.AllowedHeaders = []string{"Content-Type", "Authorization"}
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 600
	}
}

func (c *CORSConfig) loadEnv(env *CORSEnv) {
	if v, ok := envBool(env.Enabled); ok {
		c.Enabled = v
	}
	if v := envList(env.Origins); v != nil {
		c.Origins = v
	}
	if v := envList(env.AllowedMethods); v != nil {
		c.AllowedMethods = v
	}
	if v := envList(env.AllowedHeaders); v != nil {
		c.AllowedHeaders = v
	}
	if v, ok := envBool(env.AllowCredentials); ok {
		c.AllowCredentials = v
	}
	if env.MaxAge != "" {
		if maxAge, err := strconv.Atoi(os.Getenv(env.MaxAge)); err == nil {
			c.MaxAge = maxAge
		}
	}
}

func envBool(name string) (bool, bool) {
	if name == "" {
		return false, false
	}
	v, err := strconv.ParseBool(os.Getenv(name))
	if err != nil {
		return false, false
	}
	return v, true
}

// envList splits a comma-separated variable, dropping blanks.
// Returns nil when the variable is unset or empty.
func envList(name string) []string {
	if name == "" {
		return nil
	}
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}

	var out []string
	for item := range strings.SplitSeq(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
