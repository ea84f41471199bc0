package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/agrogestion/pkg/pagination"
	"github.com/JaimeStill/agrogestion/pkg/storage"
)

type repo struct {
	catalog    Catalog
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the report store over catalog and blob storage.
func New(
	catalog Catalog,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		catalog:    catalog,
		storage:    store,
		logger:     logger.With("system", "reports"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Save(ctx context.Context, cmd SaveCommand) (*Metadata, error) {
	if err := ValidateID(cmd.ID); err != nil {
		return nil, err
	}
	if len(cmd.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, cmd.ID)
	}

	previous, err := r.catalog.Find(ctx, cmd.ID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("save report %s: %w", cmd.ID, err)
		}
		previous = nil
	}

	contentType := detectContentType(cmd.Data)
	key := StorageKey(cmd.ID, uuid.NewString())

	blobMeta := map[string]string{
		"report_id":           cmd.ID,
		"has_auxiliary_image": strconv.FormatBool(cmd.HasAuxiliaryImage),
	}
	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), contentType, blobMeta); err != nil {
		return nil, fmt.Errorf("upload report %s: %w", cmd.ID, err)
	}

	m, err := r.catalog.Upsert(ctx, Metadata{
		ID:                cmd.ID,
		Size:              int64(len(cmd.Data)),
		ContentType:       contentType,
		PageCount:         extractPageCount(r.logger, cmd.Data, contentType),
		HasAuxiliaryImage: cmd.HasAuxiliaryImage,
		StorageKey:        key,
	})
	if err != nil {
		r.removeBlob(ctx, key, "compensating blob delete failed")
		return nil, fmt.Errorf("catalog report %s: %w", cmd.ID, err)
	}

	existed := previous != nil
	if existed && previous.StorageKey != key {
		r.removeBlob(ctx, previous.StorageKey, "superseded blob delete failed")
	}

	r.logger.Info("report saved", "id", m.ID, "size", m.Size, "replaced", existed)
	return m, nil
}

func (r *repo) Download(ctx context.Context, id string) (*Download, error) {
	m, err := r.Metadata(ctx, id)
	if err != nil {
		return nil, err
	}

	blob, err := r.storage.Download(ctx, m.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s: payload missing", ErrNotFound, id)
		}
		return nil, fmt.Errorf("download report %s: %w", id, err)
	}
	defer blob.Body.Close()

	data, err := io.ReadAll(blob.Body)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", id, err)
	}

	return &Download{PDFBuffer: data, Metadata: *m}, nil
}

func (r *repo) Exists(ctx context.Context, id string) (*Existence, error) {
	m, err := r.Metadata(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &Existence{ID: id, Exists: false}, nil
		}
		return nil, err
	}
	return &Existence{ID: id, Exists: true, Metadata: m}, nil
}

func (r *repo) Metadata(ctx context.Context, id string) (*Metadata, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	m, err := r.catalog.Find(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("find report %s: %w", id, err)
	}
	return m, nil
}

func (r *repo) Delete(ctx context.Context, id string) (*Deletion, error) {
	m, err := r.Metadata(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.catalog.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("delete report %s: %w", id, err)
	}

	r.removeBlob(ctx, m.StorageKey, "blob delete failed after catalog delete")

	r.logger.Info("report deleted", "id", id)
	return &Deletion{ID: id, Deleted: true, DeletedAt: time.Now().UTC()}, nil
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Metadata], error) {
	return r.catalog.List(ctx, page)
}

func (r *repo) Ping(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.catalog.Ping(ctx) })
	g.Go(func() error { return r.storage.Ping(ctx) })
	return g.Wait()
}

// removeBlob deletes key, logging instead of returning failures.
func (r *repo) removeBlob(ctx context.Context, key, msg string) {
	if err := r.storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		r.logger.Warn(msg, "key", key, "error", err)
	}
}

func detectContentType(data []byte) string {
	ct := http.DetectContentType(data)
	if ct == "application/octet-stream" && bytes.HasPrefix(data, []byte("%PDF-")) {
		return ContentTypePDF
	}
	return ct
}

func extractPageCount(logger *slog.Logger, data []byte, contentType string) *int {
	if contentType != ContentTypePDF {
		return nil
	}

	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		logger.Warn("failed to extract PDF page count", "error", err)
		return nil
	}

	return &count
}
