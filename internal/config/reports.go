package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/agrogestion/internal/reports"
)

const EnvReportsCatalog = "AGRO_REPORTS_CATALOG"

// ReportsConfig selects where report metadata is catalogued.
type ReportsConfig struct {
	Catalog string `toml:"catalog"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ReportsConfig) Finalize() error {
	if c.Catalog == "" {
		c.Catalog = reports.CatalogLocal
	}
	if v := os.Getenv(EnvReportsCatalog); v != "" {
		c.Catalog = v
	}

	switch c.Catalog {
	case reports.CatalogPostgres, reports.CatalogLocal:
		return nil
	}
	return fmt.Errorf("unsupported catalog %q", c.Catalog)
}

// Merge overwrites non-zero fields from overlay.
func (c *ReportsConfig) Merge(overlay *ReportsConfig) {
	if overlay.Catalog != "" {
		c.Catalog = overlay.Catalog
	}
}
