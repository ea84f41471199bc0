// Package api assembles the HTTP surfaces of the service: the bridge module
// that carries channel invocations and the read-only report API, both sharing
// one set of domain systems.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/agrogestion/internal/config"
	"github.com/JaimeStill/agrogestion/internal/infrastructure"
	"github.com/JaimeStill/agrogestion/internal/reports"
	"github.com/JaimeStill/agrogestion/pkg/middleware"
	"github.com/JaimeStill/agrogestion/pkg/module"
	"github.com/JaimeStill/agrogestion/pkg/openapi"
	"github.com/JaimeStill/agrogestion/pkg/routes"
)

// API holds the mounted modules and the domain behind them.
type API struct {
	Bridge *module.Module
	REST   *module.Module
	Domain *Domain
	Spec   *openapi.Spec
}

// New builds both modules. A nil verifier leaves them unauthenticated.
func New(cfg *config.Config, infra *infrastructure.Infrastructure, verifier middleware.TokenVerifier) (*API, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(cfg, runtime)
	if err != nil {
		return nil, fmt.Errorf("domain init failed: %w", err)
	}

	bridgeGroup := domain.Host.Routes()
	restGroups := []routes.Group{
		domain.Reports.Handler().Routes(),
		newStorageHandler(runtime.Storage, runtime.Logger, runtime.MaxListSize).routes(),
	}

	spec := buildSpec(cfg, bridgeGroup, restGroups)
	specBytes, err := openapi.MarshalJSON(spec)
	if err != nil {
		return nil, fmt.Errorf("openapi: %w", err)
	}

	bridgeMux := http.NewServeMux()
	routes.Register(bridgeMux, bridgeGroup)

	restMux := http.NewServeMux()
	routes.Register(restMux, restGroups...)
	restMux.HandleFunc("GET /openapi.json", openapi.ServeSpec(specBytes))

	api := &API{
		Bridge: module.New(cfg.API.BridgePath, bridgeMux),
		REST:   module.New(cfg.API.BasePath, restMux),
		Domain: domain,
		Spec:   spec,
	}

	for _, m := range []*module.Module{api.Bridge, api.REST} {
		m.Use(
			middleware.CORS(&cfg.API.CORS),
			middleware.Logger(runtime.Logger),
		)
		if verifier != nil {
			m.Use(middleware.Auth(verifier, runtime.Logger))
		}
	}

	return api, nil
}

// Start registers domain startup hooks with the infrastructure lifecycle.
func (a *API) Start(infra *infrastructure.Infrastructure) error {
	return a.Domain.Start(infra.Lifecycle)
}

// Mount registers both modules on router.
func (a *API) Mount(router *module.Router) {
	router.Mount(a.Bridge)
	router.Mount(a.REST)
}

func buildSpec(cfg *config.Config, bridgeGroup routes.Group, restGroups []routes.Group) *openapi.Spec {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.Components.AddSchemas(reports.Schemas())

	routes.Document(spec, cfg.API.BridgePath, bridgeGroup)
	routes.Document(spec, cfg.API.BasePath, restGroups...)
	return spec
}
