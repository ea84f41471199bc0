package reports_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/agrogestion/internal/render"
	"github.com/JaimeStill/agrogestion/internal/reports"
	"github.com/JaimeStill/agrogestion/pkg/kv"
	"github.com/JaimeStill/agrogestion/pkg/pagination"
	"github.com/JaimeStill/agrogestion/pkg/storage"
)

var pageCfg = pagination.Config{DefaultPageSize: 25, MaxPageSize: 200}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	sys     reports.System
	blobs   storage.System
	catalog reports.Catalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := kv.Open(&kv.Config{InMemory: true}, discard())
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	blobs, err := storage.NewLocal(db.Store(), discard())
	if err != nil {
		t.Fatal(err)
	}
	catalog := reports.NewLocalCatalog(db.Store(), pageCfg)

	return &fixture{
		sys:     reports.New(catalog, blobs, discard(), pageCfg),
		blobs:   blobs,
		catalog: catalog,
	}
}

func (f *fixture) with(catalog reports.Catalog, blobs storage.System) reports.System {
	if catalog == nil {
		catalog = f.catalog
	}
	if blobs == nil {
		blobs = f.blobs
	}
	return reports.New(catalog, blobs, discard(), pageCfg)
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

type failingCatalog struct {
	reports.Catalog
	err error
}

func (f failingCatalog) Upsert(context.Context, reports.Metadata) (*reports.Metadata, error) {
	return nil, f.err
}

func TestSaveDownloadRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.sys.Save(ctx, reports.SaveCommand{ID: "doc-123", Data: tenBytes()})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if m.Size != 10 {
		t.Errorf("size: got %d, want 10", m.Size)
	}
	if !strings.HasPrefix(m.StorageKey, "reports/doc-123/") || !strings.HasSuffix(m.StorageKey, ".pdf") {
		t.Errorf("storage key: got %s", m.StorageKey)
	}
	if m.PageCount != nil {
		t.Errorf("page count for non-PDF payload: got %d", *m.PageCount)
	}
	if m.CreatedAt.IsZero() || m.ModifiedAt.IsZero() {
		t.Error("timestamps not set")
	}

	d, err := f.sys.Download(ctx, "doc-123")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if !bytes.Equal(d.PDFBuffer, tenBytes()) {
		t.Errorf("payload: got %v", d.PDFBuffer)
	}
	if d.Metadata.ID != "doc-123" {
		t.Errorf("download metadata: got %+v", d.Metadata)
	}
}

func TestSaveReplacesAndKeepsCreatedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.sys.Save(ctx, reports.SaveCommand{ID: "harvest/2026", Data: tenBytes()})
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(5 * time.Millisecond)

	second, err := f.sys.Save(ctx, reports.SaveCommand{ID: "harvest/2026", Data: []byte("replaced"), HasAuxiliaryImage: true})
	if err != nil {
		t.Fatal(err)
	}

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("createdAt changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.ModifiedAt.After(first.ModifiedAt) {
		t.Errorf("modifiedAt not refreshed: %v -> %v", first.ModifiedAt, second.ModifiedAt)
	}
	if second.Size != 8 || !second.HasAuxiliaryImage {
		t.Errorf("replacement metadata: got %+v", second)
	}
	if !strings.HasPrefix(second.StorageKey, "reports/harvest%2F2026/") {
		t.Errorf("escaped key: got %s", second.StorageKey)
	}
	if second.StorageKey == first.StorageKey {
		t.Error("replacement reused the previous blob key")
	}
	if ok, _ := f.blobs.Exists(ctx, first.StorageKey); ok {
		t.Error("superseded blob not removed")
	}

	d, err := f.sys.Download(ctx, "harvest/2026")
	if err != nil {
		t.Fatal(err)
	}
	if string(d.PDFBuffer) != "replaced" {
		t.Errorf("payload not replaced: %q", d.PDFBuffer)
	}
}

func TestDeleteThenExists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.sys.Save(ctx, reports.SaveCommand{ID: "doc-123", Data: tenBytes()})
	if err != nil {
		t.Fatal(err)
	}

	e, err := f.sys.Exists(ctx, "doc-123")
	if err != nil || !e.Exists || e.Metadata == nil {
		t.Fatalf("Exists() before delete = %+v, %v", e, err)
	}

	del, err := f.sys.Delete(ctx, "doc-123")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !del.Deleted || del.ID != "doc-123" {
		t.Errorf("deletion: got %+v", del)
	}

	e, err = f.sys.Exists(ctx, "doc-123")
	if err != nil {
		t.Fatalf("Exists() after delete error = %v", err)
	}
	if e.Exists || e.Metadata != nil {
		t.Errorf("report resurrected: %+v", e)
	}

	if ok, _ := f.blobs.Exists(ctx, saved.StorageKey); ok {
		t.Error("blob survived delete")
	}

	if _, err := f.sys.Delete(ctx, "doc-123"); !errors.Is(err, reports.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestMissingReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.sys.Metadata(ctx, "nope"); !errors.Is(err, reports.ErrNotFound) {
		t.Errorf("Metadata() error = %v, want ErrNotFound", err)
	}
	if _, err := f.sys.Download(ctx, "nope"); !errors.Is(err, reports.ErrNotFound) {
		t.Errorf("Download() error = %v, want ErrNotFound", err)
	}
}

func TestInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		cmd     reports.SaveCommand
		wantErr error
	}{
		{"empty id", reports.SaveCommand{ID: "", Data: tenBytes()}, reports.ErrInvalidID},
		{"traversal", reports.SaveCommand{ID: "../etc/passwd", Data: tenBytes()}, reports.ErrInvalidID},
		{"absolute", reports.SaveCommand{ID: "/root", Data: tenBytes()}, reports.ErrInvalidID},
		{"too long", reports.SaveCommand{ID: strings.Repeat("x", 256), Data: tenBytes()}, reports.ErrInvalidID},
		{"empty payload", reports.SaveCommand{ID: "doc-1"}, reports.ErrEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.sys.Save(ctx, tt.cmd); !errors.Is(err, tt.wantErr) {
				t.Errorf("Save() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveSurfacesStoreFailure(t *testing.T) {
	f := newFixture(t)
	reason := errors.New("dial tcp 10.0.0.7:443: connect: connection refused")
	sys := f.with(nil, unreachableStorage{System: f.blobs, err: reason})

	_, err := sys.Save(context.Background(), reports.SaveCommand{ID: "doc-123", Data: tenBytes()})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error %q should carry the underlying reason", err)
	}

	if _, err := f.catalog.Find(context.Background(), "doc-123"); !errors.Is(err, reports.ErrNotFound) {
		t.Errorf("catalog entry written despite failed upload: %v", err)
	}
}

func TestSaveCompensatesNewReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	original, err := f.sys.Save(ctx, reports.SaveCommand{ID: "existing", Data: tenBytes()})
	if err != nil {
		t.Fatal(err)
	}

	broken := f.with(failingCatalog{Catalog: f.catalog, err: errors.New("catalog offline")}, nil)

	if _, err := broken.Save(ctx, reports.SaveCommand{ID: "fresh", Data: tenBytes()}); err == nil {
		t.Fatal("expected error")
	}
	if keys := blobKeys(t, f.blobs, "reports/fresh/"); len(keys) != 0 {
		t.Errorf("blob for new report not compensated: %v", keys)
	}

	if _, err := broken.Save(ctx, reports.SaveCommand{ID: "existing", Data: []byte("v2")}); err == nil {
		t.Fatal("expected error")
	}
	if keys := blobKeys(t, f.blobs, "reports/existing/"); len(keys) != 1 || keys[0] != original.StorageKey {
		t.Errorf("blobs after failed replace: got %v, want only %s", keys, original.StorageKey)
	}

	d, err := f.sys.Download(ctx, "existing")
	if err != nil {
		t.Fatalf("Download() after failed replace error = %v", err)
	}
	if !bytes.Equal(d.PDFBuffer, tenBytes()) || d.Metadata.Size != 10 {
		t.Errorf("after failed replace: payload %q size %d", d.PDFBuffer, d.Metadata.Size)
	}
	if int64(len(d.PDFBuffer)) != d.Metadata.Size {
		t.Errorf("payload length %d does not match metadata size %d", len(d.PDFBuffer), d.Metadata.Size)
	}
}

func blobKeys(t *testing.T, blobs storage.System, prefix string) []string {
	t.Helper()

	page, err := blobs.List(context.Background(), prefix, "", 100)
	if err != nil {
		t.Fatal(err)
	}
	keys := make([]string, len(page.Blobs))
	for i, b := range page.Blobs {
		keys[i] = b.Key
	}
	return keys
}

func TestPing(t *testing.T) {
	f := newFixture(t)

	if err := f.sys.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	down := f.with(nil, unreachableStorage{System: f.blobs, err: errors.New("container unreachable")})
	if err := down.Ping(context.Background()); err == nil {
		t.Error("Ping() should fail when blob storage is unreachable")
	}
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, id := range []string{"fumigation-03", "harvest-01", "harvest-02", "inventory-01"} {
		if _, err := f.sys.Save(ctx, reports.SaveCommand{ID: id, Data: tenBytes()}); err != nil {
			t.Fatal(err)
		}
	}

	search := "HARVEST"
	tests := []struct {
		name      string
		page      pagination.PageRequest
		wantIDs   []string
		wantTotal int
	}{
		{
			"sorted by id",
			pagination.PageRequest{Sort: pagination.SortFields{{Field: "id"}}},
			[]string{"fumigation-03", "harvest-01", "harvest-02", "inventory-01"},
			4,
		},
		{
			"descending second page",
			pagination.PageRequest{Page: 2, PageSize: 3, Sort: pagination.SortFields{{Field: "id", Descending: true}}},
			[]string{"fumigation-03"},
			4,
		},
		{
			"case-insensitive search",
			pagination.PageRequest{Search: &search, Sort: pagination.SortFields{{Field: "id"}}},
			[]string{"harvest-01", "harvest-02"},
			2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.sys.List(ctx, tt.page)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if result.Total != tt.wantTotal {
				t.Errorf("total: got %d, want %d", result.Total, tt.wantTotal)
			}

			got := make([]string, len(result.Data))
			for i, m := range result.Data {
				got[i] = m.ID
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.wantIDs) {
				t.Errorf("ids: got %v, want %v", got, tt.wantIDs)
			}
		})
	}
}

func TestSaveExtractsPageCount(t *testing.T) {
	f := newFixture(t)

	pdf, err := render.Render(render.Report{
		Title:   "Cosecha 2026",
		Columns: []string{"Campo", "Toneladas"},
		Rows:    [][]string{{"Lote 4", "120"}, {"Lote 7", "98"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	m, err := f.sys.Save(context.Background(), reports.SaveCommand{ID: "harvest-2026", Data: pdf})
	if err != nil {
		t.Fatal(err)
	}

	if m.ContentType != reports.ContentTypePDF {
		t.Errorf("content type: got %s", m.ContentType)
	}
	if m.PageCount == nil || *m.PageCount != 1 {
		t.Errorf("page count: got %v", m.PageCount)
	}
}
