package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"regexp"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/JaimeStill/agrogestion/pkg/lifecycle"
)

type localBlob struct {
	Key         string
	ContentType string
	Data        []byte
	Metadata    map[string]string
	ModifiedAt  time.Time
}

type local struct {
	store  *badgerhold.Store
	logger *slog.Logger
}

// NewLocal creates a provider that keeps blobs in the embedded key-value store.
func NewLocal(store *badgerhold.Store, logger *slog.Logger) (System, error) {
	if store == nil {
		return nil, fmt.Errorf("local storage requires a kv store")
	}
	return &local{
		store:  store,
		logger: logger.With("system", "storage", "provider", ProviderLocal),
	}, nil
}

func (l *local) Start(lc *lifecycle.Coordinator) error {
	l.logger.Info("starting storage system")
	lc.AddProbe("storage", l.Ping)
	return nil
}

func (l *local) Upload(ctx context.Context, key string, reader io.Reader, contentType string, metadata map[string]string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("upload blob %s: %w", key, err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("upload blob %s: %w", key, err)
	}

	record := localBlob{
		Key:         key,
		ContentType: contentType,
		Data:        data,
		Metadata:    maps.Clone(metadata),
		ModifiedAt:  time.Now().UTC(),
	}

	if err := l.store.Upsert(key, &record); err != nil {
		return fmt.Errorf("upload blob %s: %w", key, err)
	}

	return nil
}

func (l *local) Download(ctx context.Context, key string) (*Blob, error) {
	record, err := l.get(key)
	if err != nil {
		return nil, err
	}

	return &Blob{
		Body:          io.NopCloser(bytes.NewReader(record.Data)),
		ContentType:   record.ContentType,
		ContentLength: int64(len(record.Data)),
	}, nil
}

func (l *local) Find(ctx context.Context, key string) (*BlobInfo, error) {
	record, err := l.get(key)
	if err != nil {
		return nil, err
	}

	info := record.info()
	return &info, nil
}

func (l *local) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := l.get(key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *local) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if err := l.store.Delete(key, &localBlob{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete blob %s: %w", key, err)
	}

	return nil
}

func (l *local) List(ctx context.Context, prefix, marker string, maxResults int32) (*BlobList, error) {
	limit := int(clampMaxResults(maxResults))

	query := badgerhold.Where("Key").RegExp(regexp.MustCompile("^" + regexp.QuoteMeta(prefix)))
	if marker != "" {
		query = query.And("Key").Gt(marker)
	}
	query = query.SortBy("Key").Limit(limit + 1)

	var records []localBlob
	if err := l.store.Find(&records, query); err != nil {
		return nil, fmt.Errorf("list blobs %s: %w", prefix, err)
	}

	result := &BlobList{Blobs: make([]BlobInfo, 0, min(len(records), limit))}
	for i, record := range records {
		if i == limit {
			result.NextMarker = result.Blobs[limit-1].Key
			break
		}
		result.Blobs = append(result.Blobs, record.info())
	}

	return result, nil
}

func (l *local) Ping(ctx context.Context) error {
	if _, err := l.store.Count(&localBlob{}, nil); err != nil {
		return fmt.Errorf("local storage: %w", err)
	}
	return nil
}

func (l *local) get(key string) (*localBlob, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var record localBlob
	if err := l.store.Get(key, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get blob %s: %w", key, err)
	}

	return &record, nil
}

func (b *localBlob) info() BlobInfo {
	return BlobInfo{
		Key:           b.Key,
		ContentType:   b.ContentType,
		ContentLength: int64(len(b.Data)),
		LastModified:  b.ModifiedAt,
		Metadata:      maps.Clone(b.Metadata),
	}
}
