package reports

import (
	"context"
	"encoding/json"

	"github.com/JaimeStill/agrogestion/internal/channels"
	"github.com/JaimeStill/agrogestion/pkg/bridge"
	"github.com/JaimeStill/agrogestion/pkg/pagination"
)

// Connection answers pdf:test-connection.
type Connection struct {
	Connected bool `json:"connected"`
}

func (r *repo) Register(host *bridge.Host) {
	host.Handle(channels.PDFSave, r.handleSave)
	host.Handle(channels.PDFDownload, r.handleDownload)
	host.Handle(channels.PDFExists, r.handleExists)
	host.Handle(channels.PDFGetMetadata, r.handleMetadata)
	host.Handle(channels.PDFDelete, r.handleDelete)
	host.Handle(channels.PDFTestConnection, r.handleTestConnection)
	host.Handle(channels.PDFList, r.handleList)
}

// handleSave takes (id, pdf, hasAuxiliaryImage?).
func (r *repo) handleSave(ctx context.Context, args []json.RawMessage) (any, error) {
	id, err := bridge.Arg[string](args, 0)
	if err != nil {
		return nil, err
	}
	data, err := bridge.Arg[bridge.ByteSequence](args, 1)
	if err != nil {
		return nil, err
	}
	hasImage, err := bridge.OptArg[bool](args, 2)
	if err != nil {
		return nil, err
	}

	return r.Save(ctx, SaveCommand{ID: id, Data: data.Bytes(), HasAuxiliaryImage: hasImage})
}

func (r *repo) handleDownload(ctx context.Context, args []json.RawMessage) (any, error) {
	id, err := bridge.Arg[string](args, 0)
	if err != nil {
		return nil, err
	}
	return r.Download(ctx, id)
}

func (r *repo) handleExists(ctx context.Context, args []json.RawMessage) (any, error) {
	id, err := bridge.Arg[string](args, 0)
	if err != nil {
		return nil, err
	}
	return r.Exists(ctx, id)
}

func (r *repo) handleMetadata(ctx context.Context, args []json.RawMessage) (any, error) {
	id, err := bridge.Arg[string](args, 0)
	if err != nil {
		return nil, err
	}
	return r.Metadata(ctx, id)
}

func (r *repo) handleDelete(ctx context.Context, args []json.RawMessage) (any, error) {
	id, err := bridge.Arg[string](args, 0)
	if err != nil {
		return nil, err
	}
	return r.Delete(ctx, id)
}

func (r *repo) handleTestConnection(ctx context.Context, args []json.RawMessage) (any, error) {
	if err := r.Ping(ctx); err != nil {
		return nil, err
	}
	return Connection{Connected: true}, nil
}

// handleList takes an optional page request.
func (r *repo) handleList(ctx context.Context, args []json.RawMessage) (any, error) {
	var page pagination.PageRequest
	if len(args) > 0 && string(args[0]) != "null" {
		var err error
		if page, err = bridge.Bind[pagination.PageRequest](args, 0); err != nil {
			return nil, err
		}
	}
	return r.List(ctx, page)
}
