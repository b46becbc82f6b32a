package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSPAHandlerServesDashboard(t *testing.T) {
	h := SPAHandler()

	tests := []struct {
		name string
		path string
	}{
		{"root", "/"},
		{"index", "/index.html"},
		{"client route", "/calls/123"},
		{"traversal", "/../../etc/passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.URL.Path = tt.path
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "/ws/ui") {
				t.Fatal("Expected the dashboard page")
			}
		})
	}
}

func TestSPAHandlerDisablesIndexCaching(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	SPAHandler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Fatalf("Expected no-cache, got %q", got)
	}
}
