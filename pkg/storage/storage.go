// Package storage stores report payloads as blobs, in Azure Blob Storage or in
// the embedded key-value store.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/JaimeStill/agrogestion/pkg/lifecycle"
)

// MaxListCap bounds a single List page regardless of what the caller asks for.
const MaxListCap int32 = 5000

// System manages blob storage operations and lifecycle coordination.
type System interface {
	// Start registers a startup hook that prepares the container and a readiness probe.
	Start(lc *lifecycle.Coordinator) error
	// Upload streams data to the blob at key, replacing any existing blob.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string, metadata map[string]string) error
	// Download returns the blob at key. The caller must close Blob.Body.
	// Returns ErrNotFound if the blob does not exist.
	Download(ctx context.Context, key string) (*Blob, error)
	// Find returns the properties of the blob at key without its content.
	Find(ctx context.Context, key string) (*BlobInfo, error)
	// Exists reports whether a blob exists at key.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the blob at key. Returns ErrNotFound if the blob does not exist.
	Delete(ctx context.Context, key string) error
	// List returns one page of blobs whose keys start with prefix, continuing after marker.
	List(ctx context.Context, prefix, marker string, maxResults int32) (*BlobList, error)
	// Ping verifies the backing store answers.
	Ping(ctx context.Context) error
}

// New creates the provider selected by cfg.Provider. The local provider keeps
// blobs in store; the azure provider ignores it.
func New(cfg *Config, logger *slog.Logger, store *badgerhold.Store) (System, error) {
	switch cfg.Provider {
	case ProviderAzure:
		return NewAzure(cfg, logger)
	case ProviderLocal:
		return NewLocal(store, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}

// Blob is a downloaded blob stream.
type Blob struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// BlobInfo describes a stored blob.
type BlobInfo struct {
	Key           string            `json:"key"`
	ContentType   string            `json:"content_type"`
	ContentLength int64             `json:"content_length"`
	LastModified  time.Time         `json:"last_modified"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// BlobList is one page of a listing. NextMarker is empty on the last page.
type BlobList struct {
	Blobs      []BlobInfo `json:"blobs"`
	NextMarker string     `json:"next_marker,omitempty"`
}

// ParseMaxResults parses a page size query value.
// Empty input yields fallback; values above MaxListCap are clamped.
func ParseMaxResults(s string, fallback int32) (int32, error) {
	if s == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid max_results %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid max_results %d: must be positive", n)
	}

	return int32(min(n, int(MaxListCap))), nil
}

func clampMaxResults(n int32) int32 {
	if n <= 0 || n > MaxListCap {
		return MaxListCap
	}
	return n
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}
