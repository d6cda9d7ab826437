package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Fantasim/p2pads/internal/config"
	"github.com/Fantasim/p2pads/internal/models"
)

func TestListActions(t *testing.T) {
	env := newTestEnv(t, newTradingBackend(testAccounts()...))

	ctx := context.Background()
	for _, rec := range []models.ActionRecord{
		{Kind: models.ActionToggleAuto, CredentialID: "c1", AdID: "a1", Outcome: models.OutcomeOK},
		{Kind: models.ActionOffline, CredentialID: "c1", AdID: "a2", Outcome: models.OutcomeOK},
		{Kind: models.ActionToggleAuto, CredentialID: "c2", AdID: "b1", Outcome: models.OutcomeFailed},
	} {
		if _, err := env.db.RecordAction(ctx, rec); err != nil {
			t.Fatalf("RecordAction() error = %v", err)
		}
	}

	tests := []struct {
		query    string
		returned int
		total    int64
	}{
		{"", 3, 3},
		{"?limit=1", 1, 3},
		{"?kind=toggle_auto", 2, 2},
		{"?credential_id=c1&kind=offline", 1, 1},
		{"?limit=abc", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/actions"+tt.query, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			var body struct {
				Data []models.ActionRecord `json:"data"`
				Meta models.APIMeta        `json:"meta"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(body.Data) != tt.returned || body.Meta.Total != tt.total {
				t.Errorf("got %d/%d, want %d/%d", len(body.Data), body.Meta.Total, tt.returned, tt.total)
			}
		})
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	cfg := &config.Config{APIBaseURL: "http://127.0.0.1:8000", DBPath: "/tmp/p2pads.sqlite"}

	tests := []struct {
		name       string
		ping       error
		wantCode   int
		wantStatus string
	}{
		{"journal up", nil, http.StatusOK, "ok"},
		{"journal down", errors.New("database is closed"), http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := HealthHandler(cfg, pingFunc(func(context.Context) error { return tt.ping }), "1.2.3")

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["status"] != tt.wantStatus || body["version"] != "1.2.3" || body["backend"] != cfg.APIBaseURL {
				t.Errorf("unexpected health body: %v", body)
			}
		})
	}
}
