package reports

import (
	"github.com/JaimeStill/agrogestion/pkg/query"
	"github.com/JaimeStill/agrogestion/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "reports", "r").
	Project("report_id", "id").
	Project("size_bytes", "size").
	Project("content_type", "contentType").
	Project("page_count", "pageCount").
	Project("has_auxiliary_image", "hasAuxiliaryImage").
	Project("storage_key", "storageKey").
	Project("created_at", "createdAt").
	Project("modified_at", "modifiedAt")

var defaultSort = query.SortField{
	Field:      "modifiedAt",
	Descending: true,
}

// returning lists the columns of projection, unqualified, for RETURNING clauses.
const returning = "report_id, size_bytes, content_type, page_count, has_auxiliary_image, storage_key, created_at, modified_at"

func scanMetadata(s repository.Scanner) (Metadata, error) {
	var m Metadata
	err := s.Scan(
		&m.ID,
		&m.Size,
		&m.ContentType,
		&m.PageCount,
		&m.HasAuxiliaryImage,
		&m.StorageKey,
		&m.CreatedAt,
		&m.ModifiedAt,
	)
	return m, err
}
