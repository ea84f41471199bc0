package reports

import (
	"context"

	"github.com/JaimeStill/agrogestion/pkg/bridge"
	"github.com/JaimeStill/agrogestion/pkg/pagination"
)

// System defines the public contract for the report store.
type System interface {
	// Register binds the pdf:* channels on host.
	Register(host *bridge.Host)
	Handler() *Handler

	Save(ctx context.Context, cmd SaveCommand) (*Metadata, error)
	Download(ctx context.Context, id string) (*Download, error)
	Exists(ctx context.Context, id string) (*Existence, error)
	Metadata(ctx context.Context, id string) (*Metadata, error)
	Delete(ctx context.Context, id string) (*Deletion, error)
	List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Metadata], error)
	// Ping succeeds only when both the catalog and the blob store answer.
	Ping(ctx context.Context) error
}
