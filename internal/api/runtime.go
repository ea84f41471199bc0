package api

import (
	"github.com/JaimeStill/agrogestion/internal/config"
	"github.com/JaimeStill/agrogestion/internal/infrastructure"
	"github.com/JaimeStill/agrogestion/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination     pagination.Config
	MaxPayloadSize int64
	MaxInFlight    int
	MaxListSize    int32
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			KV:        infra.KV,
			Storage:   infra.Storage,
		},
		Pagination:     cfg.API.Pagination,
		MaxPayloadSize: cfg.API.MaxPayloadBytes(),
		MaxInFlight:    cfg.API.MaxInFlight,
		MaxListSize:    cfg.Storage.MaxListSize,
	}
}
