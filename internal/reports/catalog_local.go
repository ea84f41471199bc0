package reports

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/JaimeStill/agrogestion/pkg/pagination"
)

// catalogEntry is the badgerhold record for one report, keyed by ID.
type catalogEntry struct {
	ID                string
	Size              int64
	ContentType       string
	PageCount         *int
	HasAuxiliaryImage bool
	StorageKey        string
	CreatedAt         time.Time
	ModifiedAt        time.Time
}

// localSortFields maps the catalog's view field names to record fields.
var localSortFields = map[string]string{
	"id":         "ID",
	"size":       "Size",
	"createdAt":  "CreatedAt",
	"modifiedAt": "ModifiedAt",
}

type localCatalog struct {
	store      *badgerhold.Store
	pagination pagination.Config
	now        func() time.Time
}

// NewLocalCatalog creates a Catalog in the embedded key-value store.
func NewLocalCatalog(store *badgerhold.Store, pagination pagination.Config) Catalog {
	return &localCatalog{
		store:      store,
		pagination: pagination,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// maxUpsertAttempts bounds retries of an upsert that lost a write conflict.
const maxUpsertAttempts = 16

func (c *localCatalog) Upsert(ctx context.Context, m Metadata) (*Metadata, error) {
	var entry catalogEntry
	var err error

	for range maxUpsertAttempts {
		entry, err = c.upsert(m)
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("upsert report %s: %w", m.ID, ctx.Err())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("upsert report %s: %w", m.ID, err)
	}

	saved := entry.metadata()
	return &saved, nil
}

// upsert reads and writes the entry in one transaction so the first save of
// an id fixes CreatedAt even under concurrent saves.
func (c *localCatalog) upsert(m Metadata) (catalogEntry, error) {
	now := c.now()
	entry := entryFrom(m)
	entry.CreatedAt = now
	entry.ModifiedAt = now

	err := c.store.Badger().Update(func(tx *badger.Txn) error {
		var existing catalogEntry
		err := c.store.TxGet(tx, m.ID, &existing)
		switch {
		case err == nil:
			entry.CreatedAt = existing.CreatedAt
		case !errors.Is(err, badgerhold.ErrNotFound):
			return err
		}
		return c.store.TxUpsert(tx, m.ID, &entry)
	})
	return entry, err
}

func (c *localCatalog) Find(ctx context.Context, id string) (*Metadata, error) {
	var entry catalogEntry
	if err := c.store.Get(id, &entry); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find report %s: %w", id, err)
	}

	m := entry.metadata()
	return &m, nil
}

func (c *localCatalog) Delete(ctx context.Context, id string) error {
	if err := c.store.Delete(id, &catalogEntry{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	return nil
}

func (c *localCatalog) List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Metadata], error) {
	page.Normalize(c.pagination)

	pattern := ""
	if page.Search != nil {
		pattern = "(?i)" + regexp.QuoteMeta(*page.Search)
	}
	filter := func() *badgerhold.Query {
		return badgerhold.Where("ID").RegExp(regexp.MustCompile(pattern))
	}

	total, err := c.store.Count(&catalogEntry{}, filter())
	if err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}

	q := filter()
	fields, descending := localSort(page.Sort)
	q = q.SortBy(fields...)
	if descending {
		q = q.Reverse()
	}
	q = q.Skip(page.Offset()).Limit(page.PageSize)

	var entries []catalogEntry
	if err := c.store.Find(&entries, q); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	items := make([]Metadata, len(entries))
	for i, e := range entries {
		items[i] = e.metadata()
	}

	result := pagination.NewPageResult(items, int(total), page.Page, page.PageSize)
	return &result, nil
}

func (c *localCatalog) Ping(ctx context.Context) error {
	if _, err := c.store.Count(&catalogEntry{}, nil); err != nil {
		return fmt.Errorf("report catalog: %w", err)
	}
	return nil
}

// localSort resolves sort fields to record fields. badgerhold reverses the
// whole ordering, so the direction of the first field applies to all.
func localSort(sort pagination.SortFields) ([]string, bool) {
	if len(sort) == 0 {
		return []string{localSortFields[defaultSort.Field]}, defaultSort.Descending
	}

	var (
		fields     []string
		descending bool
	)
	for _, f := range sort {
		name, ok := localSortFields[f.Field]
		if !ok {
			continue
		}
		if len(fields) == 0 {
			descending = f.Descending
		}
		fields = append(fields, name)
	}

	if len(fields) == 0 {
		return []string{localSortFields[defaultSort.Field]}, defaultSort.Descending
	}
	return fields, descending
}

func entryFrom(m Metadata) catalogEntry {
	return catalogEntry{
		ID:                m.ID,
		Size:              m.Size,
		ContentType:       m.ContentType,
		PageCount:         m.PageCount,
		HasAuxiliaryImage: m.HasAuxiliaryImage,
		StorageKey:        m.StorageKey,
	}
}

func (e catalogEntry) metadata() Metadata {
	return Metadata{
		ID:                e.ID,
		Size:              e.Size,
		ContentType:       e.ContentType,
		PageCount:         e.PageCount,
		HasAuxiliaryImage: e.HasAuxiliaryImage,
		StorageKey:        e.StorageKey,
		CreatedAt:         e.CreatedAt,
		ModifiedAt:        e.ModifiedAt,
	}
}
