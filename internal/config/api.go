package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/JaimeStill/agrogestion/pkg/formatting"
	"github.com/JaimeStill/agrogestion/pkg/middleware"
	"github.com/JaimeStill/agrogestion/pkg/openapi"
	"github.com/JaimeStill/agrogestion/pkg/pagination"
)

const (
	EnvAPIBasePath       = "AGRO_API_BASE_PATH"
	EnvAPIBridgePath     = "AGRO_API_BRIDGE_PATH"
	EnvAPIMaxPayloadSize = "AGRO_API_MAX_PAYLOAD_SIZE"
	EnvAPIMaxInFlight    = "AGRO_API_MAX_IN_FLIGHT"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "AGRO_CORS_ENABLED",
	Origins:          "AGRO_CORS_ORIGINS",
	AllowedMethods:   "AGRO_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "AGRO_CORS_ALLOWED_HEADERS",
	AllowCredentials: "AGRO_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "AGRO_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "AGRO_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "AGRO_PAGINATION_MAX_PAGE_SIZE",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "AGRO_OPENAPI_TITLE",
	Description: "AGRO_OPENAPI_DESCRIPTION",
}

// APIConfig holds the mount points of the bridge and the report API, the
// bridge payload and WebSocket concurrency limits, and the nested CORS,
// pagination and OpenAPI settings.
type APIConfig struct {
	BasePath       string                `toml:"base_path"`
	BridgePath     string                `toml:"bridge_path"`
	MaxPayloadSize string                `toml:"max_payload_size"`
	MaxInFlight    int                   `toml:"max_in_flight"`
	CORS           middleware.CORSConfig `toml:"cors"`
	Pagination     pagination.Config     `toml:"pagination"`
	OpenAPI        openapi.Config        `toml:"openapi"`
}

// MaxPayloadBytes returns MaxPayloadSize in bytes.
func (c *APIConfig) MaxPayloadBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxPayloadSize)
	if err != nil {
		return 0
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.BridgePath != "" {
		c.BridgePath = overlay.BridgePath
	}
	if overlay.MaxPayloadSize != "" {
		c.MaxPayloadSize = overlay.MaxPayloadSize
	}
	if overlay.MaxInFlight != 0 {
		c.MaxInFlight = overlay.MaxInFlight
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.BridgePath == "" {
		c.BridgePath = "/bridge"
	}
	if c.MaxPayloadSize == "" {
		c.MaxPayloadSize = "64MB"
	}
	if c.MaxInFlight == 0 {
		c.MaxInFlight = 16
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvAPIBridgePath); v != "" {
		c.BridgePath = v
	}
	if v := os.Getenv(EnvAPIMaxPayloadSize); v != "" {
		c.MaxPayloadSize = v
	}
	if v := os.Getenv(EnvAPIMaxInFlight); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxInFlight = n
		}
	}
}

func (c *APIConfig) validate() error {
	for name, p := range map[string]string{"base_path": c.BasePath, "bridge_path": c.BridgePath} {
		if !strings.HasPrefix(p, "/") || strings.Count(p, "/") != 1 {
			return fmt.Errorf("invalid %s %q: must be a single segment starting with /", name, p)
		}
	}
	if c.BasePath == c.BridgePath {
		return fmt.Errorf("base_path and bridge_path must differ")
	}
	size, err := formatting.ParseBytes(c.MaxPayloadSize)
	if err != nil {
		return fmt.Errorf("invalid max_payload_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_payload_size must be positive")
	}
	if c.MaxInFlight < 1 {
		return fmt.Errorf("max_in_flight must be positive")
	}
	return nil
}
