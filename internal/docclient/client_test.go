package docclient_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/agrogestion/internal/channels"
	"github.com/JaimeStill/agrogestion/internal/docclient"
	"github.com/JaimeStill/agrogestion/internal/exports"
	"github.com/JaimeStill/agrogestion/internal/reports"
	"github.com/JaimeStill/agrogestion/pkg/bridge"
	"github.com/JaimeStill/agrogestion/pkg/kv"
	"github.com/JaimeStill/agrogestion/pkg/pagination"
	"github.com/JaimeStill/agrogestion/pkg/routes"
	"github.com/JaimeStill/agrogestion/pkg/storage"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tenBytes() []byte {
	return []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
}

type unreachableStorage struct {
	storage.System
	err error
}

func (u unreachableStorage) Upload(context.Context, string, io.Reader, string, map[string]string) error {
	return u.err
}

func (u unreachableStorage) Ping(context.Context) error {
	return u.err
}

// newHost wires the reports and exports channels over an in-memory store.
// wrap, when set, replaces the blob store seen by the reports system.
func newHost(t *testing.T, wrap func(storage.System) storage.System) *bridge.Host {
	t.Helper()

	db, err := kv.Open(&kv.Config{InMemory: true}, discard())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	blobs, err := storage.NewLocal(db.Store(), discard())
	if err != nil {
		t.Fatal(err)
	}
	if wrap != nil {
		blobs = wrap(blobs)
	}

	pageCfg := pagination.Config{DefaultPageSize: 25, MaxPageSize: 200}
	sys := reports.New(reports.NewLocalCatalog(db.Store(), pageCfg), blobs, discard(), pageCfg)

	ex, err := exports.New(&exports.Config{Dir: t.TempDir()}, discard())
	if err != nil {
		t.Fatal(err)
	}

	host := bridge.NewHost(channels.Registry(), discard(), 0)
	sys.Register(host)
	exports.Register(host, ex)
	return host
}

func serve(t *testing.T, host *bridge.Host) (string, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	mux := http.NewServeMux()
	group := host.Routes()
	group.Prefix = "/bridge"
	routes.Register(mux, group)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/bridge", &hits
}

func TestDocScenario(t *testing.T) {
	transports := map[string]func(t *testing.T, host *bridge.Host) bridge.Surface{
		"local": func(t *testing.T, host *bridge.Host) bridge.Surface {
			return bridge.Local(host)
		},
		"http": func(t *testing.T, host *bridge.Host) bridge.Surface {
			base, _ := serve(t, host)
			s, err := bridge.NewHTTPClient(bridge.ClientConfig{
				BaseURL:  base,
				Registry: channels.Registry(),
				Timeout:  5 * time.Second,
			})
			if err != nil {
				t.Fatal(err)
			}
			return s
		},
	}

	for name, transport := range transports {
		t.Run(name, func(t *testing.T) {
			c := docclient.New(transport(t, newHost(t, nil)), discard())
			ctx := context.Background()

			m, err := c.Save(ctx, "doc-123", tenBytes(), false)
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if m.Size != 10 || m.HasAuxiliaryImage {
				t.Errorf("saved metadata: got %+v", m)
			}

			dl, err := c.Download(ctx, "doc-123")
			if err != nil {
				t.Fatalf("Download() error = %v", err)
			}
			if !bytes.Equal(dl.PDFBuffer, tenBytes()) {
				t.Errorf("pdfBuffer: got %v", dl.PDFBuffer)
			}

			if e := c.Exists(ctx, "doc-123"); e == nil || !e.Exists {
				t.Errorf("Exists() before delete: got %+v", e)
			}

			del, err := c.Delete(ctx, "doc-123")
			if err != nil || !del.Deleted {
				t.Fatalf("Delete() = %+v, %v", del, err)
			}

			if e := c.Exists(ctx, "doc-123"); e != nil && e.Exists {
				t.Errorf("Exists() after delete: got %+v", e)
			}
			if md := c.GetMetadata(ctx, "doc-123"); md != nil {
				t.Errorf("GetMetadata() after delete: got %+v", md)
			}
		})
	}
}

func TestMutationsReturnErrors(t *testing.T) {
	c := docclient.New(bridge.Local(newHost(t, nil)), discard())
	ctx := context.Background()

	if _, err := c.Download(ctx, "missing"); err == nil || !strings.Contains(err.Error(), "report not found") {
		t.Errorf("Download() missing: got %v", err)
	}
	if _, err := c.Delete(ctx, "missing"); err == nil {
		t.Error("Delete() missing should error")
	}
	if _, err := c.Save(ctx, "", tenBytes(), false); err == nil {
		t.Error("Save() with empty id should error")
	}

	var remote *bridge.RemoteError
	_, err := c.Download(ctx, "missing")
	if !errors.As(err, &remote) {
		t.Errorf("error should wrap *bridge.RemoteError: %T", err)
	}
}

func TestSaveUnreachableStore(t *testing.T) {
	host := newHost(t, func(s storage.System) storage.System {
		return unreachableStorage{System: s, err: errors.New("container agro-reports unreachable")}
	})
	c := docclient.New(bridge.Local(host), discard())

	_, err := c.Save(context.Background(), "doc-123", tenBytes(), false)
	if err == nil || !strings.Contains(err.Error(), "container agro-reports unreachable") {
		t.Errorf("Save() error = %v, want underlying reason", err)
	}
	if c.TestConnection(context.Background()) {
		t.Error("TestConnection() should be false for an unreachable store")
	}
}

func TestGetMetadataMissingNeverFails(t *testing.T) {
	c := docclient.New(bridge.Local(newHost(t, nil)), discard())

	for _, id := range []string{"nope", "", "../escape"} {
		if md := c.GetMetadata(context.Background(), id); md != nil {
			t.Errorf("GetMetadata(%q) = %+v, want nil", id, md)
		}
	}
}

// stubSurface returns a fixed envelope or error for every call.
type stubSurface struct {
	env   bridge.Envelope[json.RawMessage]
	err   error
	calls atomic.Int32
}

func (s *stubSurface) Invoke(context.Context, bridge.Channel, ...any) (bridge.Envelope[json.RawMessage], error) {
	s.calls.Add(1)
	return s.env, s.err
}

func TestTestConnection(t *testing.T) {
	tests := []struct {
		name    string
		surface bridge.Surface
		want    bool
	}{
		{"success", &stubSurface{env: bridge.Ok(json.RawMessage(`{"connected":true}`))}, true},
		{"failed envelope", &stubSurface{env: bridge.Fail[json.RawMessage]("store down")}, false},
		{"transport error", &stubSurface{err: errors.New("connection refused")}, false},
		{"undecodable data", &stubSurface{env: bridge.Ok(json.RawMessage(`"yes"`))}, false},
		{"no surface", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := docclient.New(tt.surface, discard())
			if got := c.TestConnection(context.Background()); got != tt.want {
				t.Errorf("TestConnection() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnavailableSurface(t *testing.T) {
	c := docclient.New(nil, discard())
	ctx := context.Background()

	if _, err := c.Save(ctx, "doc-1", tenBytes(), false); err == nil || !strings.Contains(err.Error(), bridge.ErrUnavailable.Error()) {
		t.Errorf("Save() error = %v", err)
	}
	if _, err := c.Download(ctx, "doc-1"); err == nil {
		t.Error("Download() should error")
	}
	if _, err := c.Delete(ctx, "doc-1"); err == nil {
		t.Error("Delete() should error")
	}
	if _, err := c.ExportLocal(ctx, "doc-1", tenBytes()); err == nil {
		t.Error("ExportLocal() should error")
	}

	if c.Exists(ctx, "doc-1") != nil {
		t.Error("Exists() should be nil")
	}
	if c.GetMetadata(ctx, "doc-1") != nil {
		t.Error("GetMetadata() should be nil")
	}
	if c.List(ctx, pagination.PageRequest{}) != nil {
		t.Error("List() should be nil")
	}
	if c.Exports(ctx) != nil {
		t.Error("Exports() should be nil")
	}
}

func TestOneRoundTripPerCall(t *testing.T) {
	s := &stubSurface{env: bridge.Fail[json.RawMessage]("boom")}
	c := docclient.New(s, discard())
	ctx := context.Background()

	c.Save(ctx, "a", nil, false)
	c.Download(ctx, "a")
	c.Exists(ctx, "a")
	c.GetMetadata(ctx, "a")
	c.Delete(ctx, "a")
	c.TestConnection(ctx)

	if got := s.calls.Load(); got != 6 {
		t.Errorf("surface calls: got %d, want 6", got)
	}
}

func TestRejectedChannelNeverReachesHost(t *testing.T) {
	base, hits := serve(t, newHost(t, nil))

	// A UI whose allow-list only knows pdf:save.
	s, err := bridge.NewHTTPClient(bridge.ClientConfig{
		BaseURL:  base,
		Registry: bridge.NewRegistry(channels.PDFSave),
	})
	if err != nil {
		t.Fatal(err)
	}
	c := docclient.New(s, discard())

	_, err = c.Download(context.Background(), "doc-123")
	if err == nil || !strings.Contains(err.Error(), bridge.ErrUnknownChannel.Error()) {
		t.Errorf("Download() error = %v", err)
	}
	if c.GetMetadata(context.Background(), "doc-123") != nil {
		t.Error("GetMetadata() should be nil")
	}
	if hits.Load() != 0 {
		t.Errorf("host contacted %d times", hits.Load())
	}
}

func TestListAndExports(t *testing.T) {
	c := docclient.New(bridge.Local(newHost(t, nil)), discard())
	ctx := context.Background()

	for _, id := range []string{"cosecha", "compras", "fumigaciones"} {
		if _, err := c.Save(ctx, id, tenBytes(), false); err != nil {
			t.Fatal(err)
		}
	}

	page := c.List(ctx, pagination.PageRequest{Page: 1, PageSize: 2, Sort: pagination.SortFields{{Field: "id"}}})
	if page == nil {
		t.Fatal("List() returned nil")
	}
	if page.Total != 3 || len(page.Data) != 2 || page.Data[0].ID != "compras" {
		t.Errorf("List(): got %+v", page)
	}

	f, err := c.ExportLocal(ctx, "cosecha", tenBytes())
	if err != nil {
		t.Fatalf("ExportLocal() error = %v", err)
	}
	if f.Name != "cosecha.pdf" || f.Size != 10 {
		t.Errorf("exported file: got %+v", f)
	}

	files := c.Exports(ctx)
	if len(files) != 1 || files[0].Name != "cosecha.pdf" {
		t.Errorf("Exports(): got %+v", files)
	}
}
