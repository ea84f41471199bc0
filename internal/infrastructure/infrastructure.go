// Package infrastructure assembles the systems every domain module depends on:
// logging, lifecycle coordination, blob storage, and whichever of PostgreSQL
// and the embedded key-value store the configuration calls for.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/timshannon/badgerhold/v4"

	"github.com/JaimeStill/agrogestion/internal/config"
	"github.com/JaimeStill/agrogestion/pkg/database"
	"github.com/JaimeStill/agrogestion/pkg/kv"
	"github.com/JaimeStill/agrogestion/pkg/lifecycle"
	"github.com/JaimeStill/agrogestion/pkg/storage"
)

var (
	newDatabase = database.New
	openKV      = kv.Open
)

// Infrastructure holds the core systems required by all domain modules.
// Database is nil unless the postgres catalog is selected; KV is nil unless
// a local provider needs it.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	KV        kv.System
	Storage   storage.System
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	return NewWithLogger(cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
	}

	if cfg.UsesDatabase() {
		db, err := newDatabase(&cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
		infra.Database = db
	}

	if cfg.UsesKV() {
		store, err := openKV(&cfg.KV, logger)
		if err != nil {
			infra.close()
			return nil, fmt.Errorf("kv init failed: %w", err)
		}
		infra.KV = store
	}

	blobs, err := storage.New(&cfg.Storage, logger, infra.kvStore())
	if err != nil {
		infra.close()
		return nil, fmt.Errorf("storage init failed: %w", err)
	}
	infra.Storage = blobs

	return infra, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// Each system adds its own readiness probe.
func (i *Infrastructure) Start() error {
	if i.Database != nil {
		if err := i.Database.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("database start failed: %w", err)
		}
	}
	if i.KV != nil {
		if err := i.KV.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("kv start failed: %w", err)
		}
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	return nil
}

func (i *Infrastructure) kvStore() *badgerhold.Store {
	if i.KV == nil {
		return nil
	}
	return i.KV.Store()
}

// close releases whatever New opened before a later system failed.
func (i *Infrastructure) close() {
	if i.KV != nil {
		if err := i.KV.Close(); err != nil {
			i.Logger.Warn("kv close failed", "error", err)
		}
	}
	if i.Database != nil {
		if err := i.Database.Close(); err != nil {
			i.Logger.Warn("database close failed", "error", err)
		}
	}
}
