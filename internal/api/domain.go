package api

import (
	"fmt"

	"github.com/JaimeStill/agrogestion/internal/channels"
	"github.com/JaimeStill/agrogestion/internal/config"
	"github.com/JaimeStill/agrogestion/internal/exports"
	"github.com/JaimeStill/agrogestion/internal/reports"
	"github.com/JaimeStill/agrogestion/pkg/bridge"
	"github.com/JaimeStill/agrogestion/pkg/lifecycle"
)

// Domain holds the systems behind the bridge channels and the report API.
type Domain struct {
	Reports reports.System
	Exports exports.System
	Host    *bridge.Host
}

// NewDomain creates the domain systems and binds every registered channel on
// a bridge host.
func NewDomain(cfg *config.Config, runtime *Runtime) (*Domain, error) {
	catalog, err := newCatalog(cfg.Reports.Catalog, runtime)
	if err != nil {
		return nil, err
	}

	reportsSystem := reports.New(
		catalog,
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	exportsSystem, err := exports.New(&cfg.Exports, runtime.Logger)
	if err != nil {
		return nil, err
	}

	host := bridge.NewHost(channels.Registry(), runtime.Logger, runtime.MaxPayloadSize)
	host.SetMaxInFlight(runtime.MaxInFlight)
	reportsSystem.Register(host)
	exports.Register(host, exportsSystem)

	return &Domain{
		Reports: reportsSystem,
		Exports: exportsSystem,
		Host:    host,
	}, nil
}

// Start registers domain startup hooks.
func (d *Domain) Start(lc *lifecycle.Coordinator) error {
	return d.Exports.Start(lc)
}

func newCatalog(kind string, runtime *Runtime) (reports.Catalog, error) {
	switch kind {
	case reports.CatalogPostgres:
		if runtime.Database == nil {
			return nil, fmt.Errorf("postgres catalog requires a database")
		}
		return reports.NewPostgresCatalog(runtime.Database.Connection(), runtime.Pagination), nil
	case reports.CatalogLocal:
		if runtime.KV == nil {
			return nil, fmt.Errorf("local catalog requires the kv store")
		}
		return reports.NewLocalCatalog(runtime.KV.Store(), runtime.Pagination), nil
	}
	return nil, fmt.Errorf("unsupported catalog %q", kind)
}
