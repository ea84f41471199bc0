// Package kv opens the embedded badgerhold store used by the local storage
// provider and the local report catalog.
package kv

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/timshannon/badgerhold/v4"

	"github.com/JaimeStill/agrogestion/pkg/lifecycle"
)

// System owns a badgerhold store and closes it on shutdown.
type System interface {
	Store() *badgerhold.Store
	Start(lc *lifecycle.Coordinator) error
	Close() error
}

type kv struct {
	store  *badgerhold.Store
	logger *slog.Logger
}

// Open opens (or creates) the store described by cfg.
func Open(cfg *Config, logger *slog.Logger) (System, error) {
	logger = logger.With("system", "kv")

	options := badgerhold.DefaultOptions
	options.Logger = nil

	if cfg.InMemory {
		options.InMemory = true
		options.Dir = ""
		options.ValueDir = ""
	} else {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create kv directory: %w", err)
		}
		options.Dir = cfg.Path
		options.ValueDir = cfg.Path
	}

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open kv store: %w", err)
	}

	logger.Debug("kv store opened", "path", cfg.Path, "in_memory", cfg.InMemory)

	return &kv{store: store, logger: logger}, nil
}

func (k *kv) Store() *badgerhold.Store {
	return k.store
}

func (k *kv) Start(lc *lifecycle.Coordinator) error {
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		k.logger.Info("closing kv store")

		if err := k.Close(); err != nil {
			k.logger.Error("kv close failed", "error", err)
			return
		}

		k.logger.Info("kv store closed")
	})
	return nil
}

func (k *kv) Close() error {
	if k.store == nil {
		return nil
	}
	return k.store.Close()
}
