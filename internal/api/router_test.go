package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Fantasim/p2pads/internal/adsview"
	"github.com/Fantasim/p2pads/internal/backend"
	"github.com/Fantasim/p2pads/internal/batch"
	"github.com/Fantasim/p2pads/internal/config"
	"github.com/Fantasim/p2pads/internal/db"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	// Nothing listens here; the tests below never reach the backend.
	client := backend.NewClient("http://127.0.0.1:1", "token")
	view := adsview.New(client, adsview.Options{PollInterval: time.Hour, Journal: database})
	t.Cleanup(view.Close)

	return NewRouter(Dependencies{
		Config: &config.Config{APIBaseURL: "http://127.0.0.1:1", DBPath: database.Path()},
		DB:     database,
		View:   view,
		Batch:  batch.NewService(client, nil, database, nil),
		Orders: client,
	})
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Host = "localhost:8090"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["version"] != Version {
		t.Errorf("version = %q, want %q", body["version"], Version)
	}
}

func TestRouter_RejectsForeignHost(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/view", nil)
	req.Host = "console.example.com"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestRouter_MutationsNeedCSRFToken(t *testing.T) {
	router := newTestRouter(t)

	get := httptest.NewRequest(http.MethodGet, "/api/view", nil)
	get.Host = "localhost"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, get)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/view: expected 200, got %d", rec.Code)
	}

	var token string
	for _, c := range rec.Result().Cookies() {
		if c.Name == config.CSRFCookieName {
			token = c.Value
		}
	}
	if token == "" {
		t.Fatal("expected a CSRF cookie from the first GET")
	}

	post := func(withHeader bool) int {
		req := httptest.NewRequest(http.MethodPost, "/api/view/filters", strings.NewReader(`{"status":"active"}`))
		req.Host = "localhost"
		req.AddCookie(&http.Cookie{Name: config.CSRFCookieName, Value: token})
		if withHeader {
			req.Header.Set(config.CSRFHeaderName, token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := post(false); code != http.StatusForbidden {
		t.Errorf("without header: expected 403, got %d", code)
	}
	if code := post(true); code != http.StatusOK {
		t.Errorf("with header: expected 200, got %d", code)
	}
}

func TestRouter_RoutesRegistered(t *testing.T) {
	router := newTestRouter(t)

	// A route that exists answers with something other than 404/405.
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/view"},
		{http.MethodGet, "/api/actions"},
		{http.MethodPut, "/api/automation/fiat-sides"},
		{http.MethodPost, "/api/ads/a1/toggle-auto"},
		{http.MethodPost, "/api/fiat-balance/delete-by-remark"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{}`))
			req.Host = "localhost"
			req.AddCookie(&http.Cookie{Name: config.CSRFCookieName, Value: "t"})
			req.Header.Set(config.CSRFHeaderName, "t")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code == http.StatusNotFound && strings.Contains(rec.Body.String(), "404 page not found") {
				t.Errorf("route not registered")
			}
			if rec.Code == http.StatusMethodNotAllowed {
				t.Errorf("method not allowed")
			}
		})
	}
}
