package reports

import (
	"context"

	"github.com/JaimeStill/agrogestion/pkg/pagination"
)

// Catalog kinds selectable in configuration.
const (
	CatalogPostgres = "postgres"
	CatalogLocal    = "local"
)

// Catalog stores report metadata.
type Catalog interface {
	// Upsert inserts m or replaces the existing entry with the same ID. An
	// existing entry keeps its CreatedAt; ModifiedAt is always refreshed.
	Upsert(ctx context.Context, m Metadata) (*Metadata, error)
	// Find returns ErrNotFound when no entry has the given id.
	Find(ctx context.Context, id string) (*Metadata, error)
	// Delete returns ErrNotFound when no entry has the given id.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Metadata], error)
	Ping(ctx context.Context) error
}
