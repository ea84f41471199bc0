// Package config loads the service configuration: config.toml, an optional
// config.<AGRO_ENV>.toml overlay, then AGRO_* environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/agrogestion/internal/exports"
	"github.com/JaimeStill/agrogestion/internal/reports"
	"github.com/JaimeStill/agrogestion/pkg/database"
	"github.com/JaimeStill/agrogestion/pkg/kv"
	"github.com/JaimeStill/agrogestion/pkg/middleware"
	"github.com/JaimeStill/agrogestion/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvAgroEnv             = "AGRO_ENV"
	EnvAgroConfig          = "AGRO_CONFIG"
	EnvAgroShutdownTimeout = "AGRO_SHUTDOWN_TIMEOUT"
	EnvAgroVersion         = "AGRO_VERSION"
)

var databaseEnv = &database.Env{
	DSN:             "AGRO_DB_DSN",
	Host:            "AGRO_DB_HOST",
	Port:            "AGRO_DB_PORT",
	Name:            "AGRO_DB_NAME",
	User:            "AGRO_DB_USER",
	Password:        "AGRO_DB_PASSWORD",
	SSLMode:         "AGRO_DB_SSL_MODE",
	MaxOpenConns:    "AGRO_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "AGRO_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "AGRO_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "AGRO_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:         "AGRO_STORAGE_PROVIDER",
	ContainerName:    "AGRO_STORAGE_CONTAINER_NAME",
	ConnectionString: "AGRO_STORAGE_CONNECTION_STRING",
	AccountURL:       "AGRO_STORAGE_ACCOUNT_URL",
	MaxListSize:      "AGRO_STORAGE_MAX_LIST_SIZE",
}

var kvEnv = &kv.Env{
	Path:     "AGRO_KV_PATH",
	InMemory: "AGRO_KV_IN_MEMORY",
}

var authEnv = &middleware.AuthEnv{
	Issuer:   "AGRO_AUTH_ISSUER",
	ClientID: "AGRO_AUTH_CLIENT_ID",
}

var exportsEnv = &exports.Env{
	Dir: "AGRO_EXPORTS_DIR",
}

// Config is the root configuration of the report bridge service.
type Config struct {
	Server          ServerConfig          `toml:"server"`
	Database        database.Config       `toml:"database"`
	Storage         storage.Config        `toml:"storage"`
	KV              kv.Config             `toml:"kv"`
	API             APIConfig             `toml:"api"`
	Auth            middleware.AuthConfig `toml:"auth"`
	Exports         exports.Config        `toml:"exports"`
	Reports         ReportsConfig         `toml:"reports"`
	ShutdownTimeout string                `toml:"shutdown_timeout"`
	Version         string                `toml:"version"`
}

// Env returns the AGRO_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvAgroEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// UsesDatabase reports whether any configured component needs PostgreSQL.
func (c *Config) UsesDatabase() bool {
	return c.Reports.Catalog == reports.CatalogPostgres
}

// UsesKV reports whether any configured component needs the embedded store.
func (c *Config) UsesKV() bool {
	return c.Reports.Catalog == reports.CatalogLocal || c.Storage.Provider == storage.ProviderLocal
}

// Load reads the base config (AGRO_CONFIG or config.toml, if present),
// applies any environment overlay, and finalizes all values. Without a config
// file, defaults and environment variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	base := BaseConfigFile
	if v := os.Getenv(EnvAgroConfig); v != "" {
		base = v
	}

	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if base != BaseConfigFile {
		return nil, fmt.Errorf("config %s: %w", base, err)
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.KV.Merge(&overlay.KV)
	c.API.Merge(&overlay.API)
	c.Auth.Merge(&overlay.Auth)
	c.Exports.Merge(&overlay.Exports)
	c.Reports.Merge(&overlay.Reports)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Reports.Finalize(); err != nil {
		return fmt.Errorf("reports: %w", err)
	}
	if c.UsesDatabase() {
		if err := c.Database.Finalize(databaseEnv); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if c.UsesKV() {
		if err := c.KV.Finalize(kvEnv); err != nil {
			return fmt.Errorf("kv: %w", err)
		}
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Exports.Finalize(exportsEnv); err != nil {
		return fmt.Errorf("exports: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvAgroShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvAgroVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvAgroEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
