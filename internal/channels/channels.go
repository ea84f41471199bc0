// Package channels declares the fixed set of bridge channels the host exposes.
package channels

import "github.com/JaimeStill/agrogestion/pkg/bridge"

const (
	PDFSave           bridge.Channel = "pdf:save"
	PDFDownload       bridge.Channel = "pdf:download"
	PDFExists         bridge.Channel = "pdf:exists"
	PDFGetMetadata    bridge.Channel = "pdf:get-metadata"
	PDFDelete         bridge.Channel = "pdf:delete"
	PDFTestConnection bridge.Channel = "pdf:test-connection"
	PDFList           bridge.Channel = "pdf:list"

	FileSavePDF     bridge.Channel = "file:save-pdf"
	FileListExports bridge.Channel = "file:list-exports"
)

// All lists every channel in registration order.
func All() []bridge.Channel {
	return []bridge.Channel{
		PDFSave,
		PDFDownload,
		PDFExists,
		PDFGetMetadata,
		PDFDelete,
		PDFTestConnection,
		PDFList,
		FileSavePDF,
		FileListExports,
	}
}

// Registry builds the allow-list shared by the host and every UI-side transport.
func Registry() *bridge.Registry {
	return bridge.NewRegistry(All()...)
}
