package scalar_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/agrogestion/pkg/module"
	"github.com/JaimeStill/agrogestion/web/scalar"
)

func TestReferencePage(t *testing.T) {
	router := module.NewRouter()
	router.Mount(scalar.NewModule("/docs", "/api/openapi.json"))

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/docs", http.StatusOK},
		{"/docs/", http.StatusOK},
		{"/docs/missing.js", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && !strings.Contains(rec.Body.String(), `data-url="/api/openapi.json"`) {
				t.Errorf("spec url not rendered: %s", rec.Body.String())
			}
		})
	}
}
