package exports

import (
	"context"
	"encoding/json"

	"github.com/JaimeStill/agrogestion/internal/channels"
	"github.com/JaimeStill/agrogestion/pkg/bridge"
)

// Register binds the file:* channels on host.
func Register(host *bridge.Host, sys System) {
	// file:save-pdf takes (filename, pdf).
	host.Handle(channels.FileSavePDF, func(ctx context.Context, args []json.RawMessage) (any, error) {
		name, err := bridge.Arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		data, err := bridge.Arg[bridge.ByteSequence](args, 1)
		if err != nil {
			return nil, err
		}
		return sys.Save(ctx, name, data.Bytes())
	})

	host.Handle(channels.FileListExports, func(ctx context.Context, args []json.RawMessage) (any, error) {
		return sys.List(ctx)
	})
}
