package reports_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/agrogestion/internal/channels"
	"github.com/JaimeStill/agrogestion/internal/reports"
	"github.com/JaimeStill/agrogestion/pkg/bridge"
	"github.com/JaimeStill/agrogestion/pkg/routes"
)

func localSurface(t *testing.T, sys reports.System) bridge.Surface {
	t.Helper()
	host := bridge.NewHost(channels.Registry(), discard(), 0)
	sys.Register(host)
	return bridge.Local(host)
}

func invoke[T any](t *testing.T, s bridge.Surface, ch bridge.Channel, args ...any) bridge.Envelope[T] {
	t.Helper()

	raw, err := s.Invoke(context.Background(), ch, args...)
	if err != nil {
		t.Fatalf("Invoke(%s) error = %v", ch, err)
	}
	env, err := bridge.Decode[T](raw)
	if err != nil {
		t.Fatalf("Decode(%s) error = %v", ch, err)
	}
	return env
}

func TestChannelsDocScenario(t *testing.T) {
	f := newFixture(t)
	s := localSurface(t, f.sys)

	payload := bridge.ByteSequence(tenBytes())

	saved := invoke[reports.Metadata](t, s, channels.PDFSave, "doc-123", payload, false)
	if !saved.Success || saved.Data.Size != 10 {
		t.Fatalf("pdf:save: got %+v", saved)
	}

	dl := invoke[reports.Download](t, s, channels.PDFDownload, "doc-123")
	if !dl.Success || string(dl.Data.PDFBuffer) != string(tenBytes()) {
		t.Fatalf("pdf:download: got %+v", dl)
	}

	meta := invoke[reports.Metadata](t, s, channels.PDFGetMetadata, "doc-123")
	if !meta.Success || meta.Data.ID != "doc-123" {
		t.Errorf("pdf:get-metadata: got %+v", meta)
	}

	del := invoke[reports.Deletion](t, s, channels.PDFDelete, "doc-123")
	if !del.Success || !del.Data.Deleted {
		t.Errorf("pdf:delete: got %+v", del)
	}

	exists := invoke[reports.Existence](t, s, channels.PDFExists, "doc-123")
	if !exists.Success || exists.Data.Exists {
		t.Errorf("pdf:exists after delete: got %+v", exists)
	}

	missing := invoke[reports.Metadata](t, s, channels.PDFGetMetadata, "doc-123")
	if missing.Success || !strings.Contains(missing.Error, "report not found") {
		t.Errorf("pdf:get-metadata on missing id: got %+v", missing)
	}
}

func TestChannelsTestConnection(t *testing.T) {
	f := newFixture(t)

	up := invoke[reports.Connection](t, localSurface(t, f.sys), channels.PDFTestConnection)
	if !up.Success || !up.Data.Connected {
		t.Errorf("healthy store: got %+v", up)
	}

	down := f.with(nil, unreachableStorage{System: f.blobs, err: errors.New("container unreachable")})
	env := invoke[reports.Connection](t, localSurface(t, down), channels.PDFTestConnection)
	if env.Success {
		t.Error("unreachable store should fail pdf:test-connection")
	}
}

func TestChannelsArgumentErrors(t *testing.T) {
	f := newFixture(t)
	s := localSurface(t, f.sys)

	tests := []struct {
		name string
		ch   bridge.Channel
		args []any
	}{
		{"save without payload", channels.PDFSave, []any{"doc-1"}},
		{"save with base64 payload", channels.PDFSave, []any{"doc-1", "AQID"}},
		{"download without id", channels.PDFDownload, nil},
		{"list with negative page", channels.PDFList, []any{map[string]int{"page": -1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := invoke[json.RawMessage](t, s, tt.ch, tt.args...)
			if env.Success {
				t.Error("expected failed envelope")
			}
			if !strings.Contains(env.Error, bridge.ErrInvalidArgs.Error()) {
				t.Errorf("error %q should report invalid arguments", env.Error)
			}
		})
	}
}

func TestChannelsList(t *testing.T) {
	f := newFixture(t)
	s := localSurface(t, f.sys)

	for _, id := range []string{"a", "b", "c"} {
		invoke[reports.Metadata](t, s, channels.PDFSave, id, bridge.ByteSequence(tenBytes()))
	}

	type page struct {
		Data       []reports.Metadata `json:"data"`
		Total      int                `json:"total"`
		TotalPages int                `json:"totalPages"`
	}

	all := invoke[page](t, s, channels.PDFList)
	if !all.Success || all.Data.Total != 3 {
		t.Errorf("list without args: got %+v", all)
	}

	paged := invoke[page](t, s, channels.PDFList, map[string]any{"page": 1, "pageSize": 2, "sort": "id"})
	if len(paged.Data.Data) != 2 || paged.Data.TotalPages != 2 || paged.Data.Data[0].ID != "a" {
		t.Errorf("paged list: got %+v", paged.Data)
	}
}

func TestHandler(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.sys.Save(ctx, reports.SaveCommand{ID: "doc-123", Data: tenBytes()}); err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	routes.Register(mux, f.sys.Handler().Routes())

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"list", "/reports?pageSize=10", http.StatusOK, `"total":1`},
		{"metadata", "/reports/doc-123", http.StatusOK, `"size":10`},
		{"missing", "/reports/nope", http.StatusNotFound, `report not found`},
		{"download", "/reports/doc-123/download", http.StatusOK, string(tenBytes())},
		{"download missing", "/reports/nope/download", http.StatusNotFound, `"error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body %q does not contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{reports.ErrNotFound, http.StatusNotFound},
		{reports.ErrInvalidID, http.StatusBadRequest},
		{reports.ErrEmpty, http.StatusBadRequest},
		{reports.ErrDuplicate, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := reports.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
