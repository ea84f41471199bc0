// Package docclient is the UI-side wrapper over the bridge surface. Each method
// performs one channel round trip and turns the resulting envelope into Go
// values: mutations return errors, reads return nil sentinels.
package docclient

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/agrogestion/internal/channels"
	"github.com/JaimeStill/agrogestion/internal/exports"
	"github.com/JaimeStill/agrogestion/internal/reports"
	"github.com/JaimeStill/agrogestion/pkg/bridge"
	"github.com/JaimeStill/agrogestion/pkg/pagination"
)

// Download is a fetched report with its payload converted back to bytes.
type Download struct {
	PDFBuffer []byte
	Metadata  reports.Metadata
}

// Client calls the document channels of a bridge surface.
type Client struct {
	surface bridge.Surface
	logger  *slog.Logger
}

// New creates a Client over surface. A nil surface is allowed: every call then
// fails with bridge.ErrUnavailable through the normal failure paths.
func New(surface bridge.Surface, logger *slog.Logger) *Client {
	return &Client{
		surface: surface,
		logger:  logger.With("system", "docclient"),
	}
}

// Save stores pdf under id, replacing any previous report.
func (c *Client) Save(ctx context.Context, id string, pdf []byte, hasAuxiliaryImage bool) (*reports.Metadata, error) {
	env := invoke[reports.Metadata](ctx, c, channels.PDFSave, id, bridge.ByteSequence(pdf), hasAuxiliaryImage)
	return must(c, channels.PDFSave, env)
}

// Download fetches the payload and metadata of id.
func (c *Client) Download(ctx context.Context, id string) (*Download, error) {
	env := invoke[reports.Download](ctx, c, channels.PDFDownload, id)
	dl, err := must(c, channels.PDFDownload, env)
	if err != nil {
		return nil, err
	}
	return &Download{
		PDFBuffer: dl.PDFBuffer.Bytes(),
		Metadata:  dl.Metadata,
	}, nil
}

// Exists reports whether id is stored. Failures yield nil.
func (c *Client) Exists(ctx context.Context, id string) *reports.Existence {
	return maybe(c, channels.PDFExists, invoke[reports.Existence](ctx, c, channels.PDFExists, id))
}

// GetMetadata returns the metadata of id, or nil when it is missing or the call fails.
func (c *Client) GetMetadata(ctx context.Context, id string) *reports.Metadata {
	return maybe(c, channels.PDFGetMetadata, invoke[reports.Metadata](ctx, c, channels.PDFGetMetadata, id))
}

// Delete removes id.
func (c *Client) Delete(ctx context.Context, id string) (*reports.Deletion, error) {
	env := invoke[reports.Deletion](ctx, c, channels.PDFDelete, id)
	return must(c, channels.PDFDelete, env)
}

// TestConnection is true only when the host reaches its document store.
func (c *Client) TestConnection(ctx context.Context) bool {
	conn := maybe(c, channels.PDFTestConnection, invoke[reports.Connection](ctx, c, channels.PDFTestConnection))
	return conn != nil && conn.Connected
}

// List returns one page of report metadata. Failures yield nil.
func (c *Client) List(ctx context.Context, page pagination.PageRequest) *pagination.PageResult[reports.Metadata] {
	env := invoke[pagination.PageResult[reports.Metadata]](ctx, c, channels.PDFList, page)
	return maybe(c, channels.PDFList, env)
}

// ExportLocal asks the host to write pdf into its export directory as filename.
func (c *Client) ExportLocal(ctx context.Context, filename string, pdf []byte) (*exports.File, error) {
	env := invoke[exports.File](ctx, c, channels.FileSavePDF, filename, bridge.ByteSequence(pdf))
	return must(c, channels.FileSavePDF, env)
}

// Exports lists the host export directory. Failures yield nil.
func (c *Client) Exports(ctx context.Context) []exports.File {
	files := maybe(c, channels.FileListExports, invoke[[]exports.File](ctx, c, channels.FileListExports))
	if files == nil {
		return nil
	}
	return *files
}

// invoke performs the round trip. A missing surface, a transport error and an
// undecodable result all come back as failed envelopes.
func invoke[T any](ctx context.Context, c *Client, ch bridge.Channel, args ...any) bridge.Envelope[T] {
	if c.surface == nil {
		return bridge.Fail[T](bridge.ErrUnavailable.Error())
	}

	raw, err := c.surface.Invoke(ctx, ch, args...)
	if err != nil {
		return bridge.Fail[T](err.Error())
	}

	env, err := bridge.Decode[T](raw)
	if err != nil {
		return bridge.Fail[T](err.Error())
	}
	return env
}

func must[T any](c *Client, ch bridge.Channel, env bridge.Envelope[T]) (*T, error) {
	data, err := env.Result()
	if err != nil {
		c.logger.Error("operation failed", "channel", ch, "error", err)
		return nil, fmt.Errorf("%s: %w", ch, err)
	}
	return &data, nil
}

func maybe[T any](c *Client, ch bridge.Channel, env bridge.Envelope[T]) *T {
	data, err := env.Result()
	if err != nil {
		c.logger.Error("operation failed", "channel", ch, "error", err)
		return nil
	}
	return &data
}
