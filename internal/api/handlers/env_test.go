package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Fantasim/p2pads/internal/adsview"
	"github.com/Fantasim/p2pads/internal/backend"
	"github.com/Fantasim/p2pads/internal/batch"
	"github.com/Fantasim/p2pads/internal/db"
	"github.com/Fantasim/p2pads/internal/models"
)

// tradingBackend is an in-memory stand-in for the trading backend API.
type tradingBackend struct {
	mu       sync.Mutex
	accounts []models.Account
	running  map[string]bool
	config   models.FiatBalanceConfig
	orders   []models.AccountPendingOrders
	reject   map[string]string // ad id -> detail returned with a 400
	toggles  []models.ToggleAutoRequest
	batches  []models.BatchCreateRequest
	deletes  []models.DeleteByRemarkRequest
	requests map[string]int
}

func newTradingBackend(accounts ...models.Account) *tradingBackend {
	return &tradingBackend{
		accounts: accounts,
		running:  map[string]bool{},
		reject:   map[string]string{},
		requests: map[string]int{},
		config: models.FiatBalanceConfig{
			Tokens: []string{"USDT", "BTC"},
			Fiats:  []string{"USD", "EUR"},
			Limits: map[string][]models.FiatLimitTier{
				"USD": {{MinAmount: strPtr("5"), MaxAmount: strPtr("500")}},
			},
			Accounts: []models.FiatBalanceAccount{
				{CredentialID: "c1", Exchange: "bybit", Balances: map[string]float64{"USDT": 1200}},
			},
			RemarkMarker: "#fb",
		},
	}
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func (b *tradingBackend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[path]
}

func (b *tradingBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests[r.URL.Path]++

	write := func(v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}

	switch path := r.URL.Path; {
	case path == backend.PathAds:
		write(models.AdsResponse{Accounts: b.accounts})

	case strings.HasSuffix(path, "/status"):
		base := strings.TrimSuffix(path, "/status")
		write(models.AutomationSnapshot{Running: b.running[base], IntervalSeconds: 30, Ads: []models.AutomationTelemetry{}})

	case strings.HasSuffix(path, "/start"):
		b.running[strings.TrimSuffix(path, "/start")] = true
		write(map[string]bool{"ok": true})

	case strings.HasSuffix(path, "/stop"):
		b.running[strings.TrimSuffix(path, "/stop")] = false
		write(map[string]bool{"ok": true})

	case path == backend.PathAdToggleAuto:
		var req models.ToggleAutoRequest
		json.NewDecoder(r.Body).Decode(&req)
		if detail, ok := b.reject[req.AdID]; ok {
			w.WriteHeader(http.StatusBadRequest)
			write(map[string]string{"detail": detail})
			return
		}
		b.toggles = append(b.toggles, req)
		write(map[string]bool{"ok": true})

	case path == backend.PathAdOffline, path == backend.PathAdActivate:
		write(map[string]bool{"ok": true})

	case path == backend.PathFiatBalanceConfig:
		write(b.config)

	case path == backend.PathFiatBalanceBatch:
		var req models.BatchCreateRequest
		json.NewDecoder(r.Body).Decode(&req)
		b.batches = append(b.batches, req)
		var results []models.BatchResult
		for _, token := range req.Tokens {
			for _, fiat := range req.Fiats {
				results = append(results, models.BatchResult{Token: token, Fiat: fiat, Side: "BUY", Status: "created"})
			}
		}
		write(results)

	case path == backend.PathFiatBalanceDeleteByRM:
		var req models.DeleteByRemarkRequest
		json.NewDecoder(r.Body).Decode(&req)
		b.deletes = append(b.deletes, req)
		write([]models.BatchResult{{AdID: "a9", Status: "deleted"}})

	case path == backend.PathPendingOrders:
		write(models.PendingOrdersResponse{Accounts: b.orders})

	default:
		w.WriteHeader(http.StatusNotFound)
		write(map[string]string{"detail": "Not Found"})
	}
}

type testEnv struct {
	backend *tradingBackend
	client  *backend.Client
	db      *db.DB
	view    *adsview.View
	batch   *batch.Service
	router  chi.Router
}

// newTestEnv wires the real client, page controller, batch service and
// journal against a fake trading backend, and loads the ads page.
func newTestEnv(t *testing.T, fake *tradingBackend) *testEnv {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	database, err := db.New(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	client := backend.NewClient(srv.URL, "test-token")
	view := adsview.New(client, adsview.Options{
		PollInterval: time.Hour,
		ToggleRPS:    1000,
		Journal:      database,
	})
	t.Cleanup(view.Close)
	if err := view.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	env := &testEnv{
		backend: fake,
		client:  client,
		db:      database,
		view:    view,
		batch:   batch.NewService(client, nil, database, nil),
	}
	env.router = env.routes()
	return env
}

func (e *testEnv) routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/api/view", GetView(e.view))
	r.Post("/api/view/refresh", RefreshView(e.view))
	r.Post("/api/view/account", SelectAccount(e.view))
	r.Post("/api/view/mode", SetViewMode(e.view))
	r.Post("/api/view/filters", SetFilters(e.view))
	r.Post("/api/ads/{adID}/toggle-auto", AdAction(e.view, models.ActionToggleAuto))
	r.Post("/api/ads/{adID}/offline", AdAction(e.view, models.ActionOffline))
	r.Post("/api/ads/{adID}/activate", AdAction(e.view, models.ActionActivate))
	r.Post("/api/bulk-toggle", BulkToggle(e.view))
	r.Post("/api/automation/toggle", ToggleAutomation(e.view))
	r.Put("/api/automation/fiat-sides", SetFiatSides(e.view))
	r.Get("/api/fiat-balance/form", GetFiatBalanceForm(e.batch))
	r.Post("/api/fiat-balance/create-batch", CreateBatch(e.batch))
	r.Post("/api/fiat-balance/delete-by-remark", DeleteByRemark(e.batch))
	r.Get("/api/orders/pending", GetPendingOrders(e.client))
	r.Get("/api/actions", ListActions(e.db))
	return r
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// pageBody is the subset of the page model the tests inspect.
type pageBody struct {
	Data struct {
		Loaded          bool   `json:"loaded"`
		SelectedAccount string `json:"selected_account"`
		Mode            string `json:"mode"`
		Total           int    `json:"total"`
		Accounts        []struct {
			CredentialID string `json:"credential_id"`
			Label        string `json:"label"`
		} `json:"accounts"`
		Groups []struct {
			Fiat string `json:"fiat"`
			Sell []struct {
				AdID       string `json:"ad_id"`
				Mode       string `json:"remark_mode"`
				Automation struct {
					Enabled bool `json:"is_auto_enabled"`
					Paused  bool `json:"is_auto_paused"`
				} `json:"automation"`
			} `json:"sell"`
		} `json:"groups"`
		BulkSwitch *struct {
			Checked bool `json:"checked"`
		} `json:"bulk_switch"`
		Automation struct {
			Running bool `json:"running"`
		} `json:"automation"`
		FiatAutomation struct {
			Running bool `json:"running"`
		} `json:"fiat_automation"`
		FiatSides struct {
			Sell bool `json:"sell"`
			Buy  bool `json:"buy"`
		} `json:"fiat_sides"`
		Error string `json:"error"`
	} `json:"data"`
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) pageBody {
	t.Helper()
	var body pageBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	return body
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.APIError {
	t.Helper()
	var body models.APIError
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func testAd(id, fiat, remark string) models.Ad {
	return models.Ad{
		AdID:           id,
		Side:           "SELL",
		Token:          "USDT",
		FiatCurrency:   fiat,
		StatusCode:     intPtr(10),
		Remark:         remark,
		PaymentMethods: []string{},
		PaymentTypeIDs: []models.PaymentTypeID{"14"},
	}
}

func testAccounts() []models.Account {
	return []models.Account{
		{
			CredentialID: "c1",
			AccountLabel: "Main",
			Exchange:     "bybit",
			Ads: []models.Ad{
				testAd("a1", "USD", "fast release"),
				testAd("a2", "USD", "@@@ @*@ paused"),
				testAd("a3", "EUR", "@@@ auto"),
			},
			FiatBalanceAds: []models.Ad{},
		},
		{CredentialID: "c2", Exchange: "okx", Ads: []models.Ad{}, FiatBalanceAds: []models.Ad{}},
	}
}
