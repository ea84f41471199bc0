package reports

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/agrogestion/pkg/pagination"
	"github.com/JaimeStill/agrogestion/pkg/query"
	"github.com/JaimeStill/agrogestion/pkg/repository"
)

type pgCatalog struct {
	db         *sql.DB
	pagination pagination.Config
}

// NewPostgresCatalog creates a Catalog over the reports table.
func NewPostgresCatalog(db *sql.DB, pagination pagination.Config) Catalog {
	return &pgCatalog{db: db, pagination: pagination}
}

func (c *pgCatalog) Upsert(ctx context.Context, m Metadata) (*Metadata, error) {
	q := fmt.Sprintf(`
		INSERT INTO %s (id, report_id, size_bytes, content_type, page_count, has_auxiliary_image, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (report_id) DO UPDATE SET
			size_bytes = EXCLUDED.size_bytes,
			content_type = EXCLUDED.content_type,
			page_count = EXCLUDED.page_count,
			has_auxiliary_image = EXCLUDED.has_auxiliary_image,
			storage_key = EXCLUDED.storage_key,
			modified_at = NOW()
		RETURNING %s`, projection.Table(), returning)

	args := []any{
		uuid.New(),
		m.ID,
		m.Size,
		m.ContentType,
		m.PageCount,
		m.HasAuxiliaryImage,
		m.StorageKey,
	}

	saved, err := repository.WithTx(ctx, c.db, func(tx *sql.Tx) (Metadata, error) {
		return repository.QueryOne(ctx, tx, q, args, scanMetadata)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &saved, nil
}

func (c *pgCatalog) Find(ctx context.Context, id string) (*Metadata, error) {
	q, args := query.NewBuilder(projection).BuildSingle("id", id)

	m, err := repository.QueryOne(ctx, c.db, q, args, scanMetadata)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &m, nil
}

func (c *pgCatalog) Delete(ctx context.Context, id string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE report_id = $1", projection.Table())

	_, err := repository.WithTx(ctx, c.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, q, id)
	})
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

func (c *pgCatalog) List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Metadata], error) {
	page.Normalize(c.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "id").
		OrderByFields(page.Sort)

	countSQL, args := qb.BuildCount()
	pageSQL, _ := qb.BuildPage(page.Page, page.PageSize)

	items, total, err := repository.QueryPage(ctx, c.db, countSQL, pageSQL, args, scanMetadata)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", repository.MapError(err, ErrNotFound, ErrDuplicate))
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (c *pgCatalog) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("report catalog: %w", repository.MapError(err, ErrNotFound, ErrDuplicate))
	}
	return nil
}
