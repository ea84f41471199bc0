// Package reports is the remote document store behind the pdf:* bridge
// channels. Report payloads live in blob storage; their metadata lives in a
// catalog (PostgreSQL or the embedded key-value store).
package reports

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/JaimeStill/agrogestion/pkg/bridge"
)

// MaxIDLength bounds a report id.
const MaxIDLength = 255

// ContentTypePDF is the content type recorded for PDF payloads.
const ContentTypePDF = "application/pdf"

// Metadata describes a stored report.
type Metadata struct {
	ID                string    `json:"id"`
	Size              int64     `json:"size"`
	ContentType       string    `json:"contentType"`
	PageCount         *int      `json:"pageCount"`
	HasAuxiliaryImage bool      `json:"hasAuxiliaryImage"`
	CreatedAt         time.Time `json:"createdAt"`
	ModifiedAt        time.Time `json:"modifiedAt"`
	StorageKey        string    `json:"storageKey"`
}

// Existence answers pdf:exists. Metadata is set only when the report exists.
type Existence struct {
	ID       string    `json:"id"`
	Exists   bool      `json:"exists"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Deletion confirms a removed report.
type Deletion struct {
	ID        string    `json:"id"`
	Deleted   bool      `json:"deleted"`
	DeletedAt time.Time `json:"deletedAt"`
}

// Download carries a report payload and its metadata across the bridge.
type Download struct {
	PDFBuffer bridge.ByteSequence `json:"pdfBuffer"`
	Metadata  Metadata            `json:"metadata"`
}

// SaveCommand replaces the report identified by ID with Data.
type SaveCommand struct {
	ID                string
	Data              []byte
	HasAuxiliaryImage bool
}

// ValidateID checks that id can name a report.
func ValidateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidID)
	case len(id) > MaxIDLength:
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidID, MaxIDLength)
	case strings.HasPrefix(id, "/"):
		return fmt.Errorf("%w: %q starts with /", ErrInvalidID, id)
	case strings.Contains(id, ".."):
		return fmt.Errorf("%w: %q contains ..", ErrInvalidID, id)
	}
	return nil
}

// StorageKey returns the blob key of one saved revision of a report.
func StorageKey(id, revision string) string {
	return "reports/" + url.PathEscape(id) + "/" + revision + ".pdf"
}
