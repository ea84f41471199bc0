package main

import (
	"context"
	"net/http"
	"time"

	"github.com/JaimeStill/agrogestion/internal/api"
	"github.com/JaimeStill/agrogestion/internal/config"
	"github.com/JaimeStill/agrogestion/internal/infrastructure"
	"github.com/JaimeStill/agrogestion/pkg/handlers"
	"github.com/JaimeStill/agrogestion/pkg/middleware"
	"github.com/JaimeStill/agrogestion/pkg/module"
	"github.com/JaimeStill/agrogestion/web/scalar"
)

type Modules struct {
	API    *api.API
	Scalar *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	var verifier middleware.TokenVerifier
	if cfg.Auth.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		v, err := middleware.NewVerifier(ctx, &cfg.Auth)
		if err != nil {
			return nil, err
		}
		verifier = v
		infra.Logger.Info("bearer authentication enabled", "issuer", cfg.Auth.Issuer)
	}

	apiModules, err := api.New(cfg, infra, verifier)
	if err != nil {
		return nil, err
	}

	scalarModule := scalar.NewModule("/docs", cfg.API.BasePath+"/openapi.json")
	scalarModule.Use(middleware.Logger(infra.Logger))

	return &Modules{
		API:    apiModules,
		Scalar: scalarModule,
	}, nil
}

func (m *Modules) Mount(router *module.Router) {
	m.API.Mount(router)
	router.Mount(m.Scalar)
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		failures := infra.Lifecycle.Probe(ctx)
		if len(failures) == 0 {
			handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
			return
		}

		checks := make(map[string]string, len(failures))
		for name, err := range failures {
			checks[name] = err.Error()
		}
		handlers.RespondJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "failures": checks})
	})

	return router
}
