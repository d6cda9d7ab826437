package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Fantasim/p2pads/internal/adsview"
	"github.com/Fantasim/p2pads/internal/api/handlers"
	"github.com/Fantasim/p2pads/internal/api/middleware"
	"github.com/Fantasim/p2pads/internal/batch"
	"github.com/Fantasim/p2pads/internal/config"
	"github.com/Fantasim/p2pads/internal/db"
	"github.com/Fantasim/p2pads/internal/models"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Dependencies are the components the console routes operate on.
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	View   *adsview.View
	Batch  *batch.Service
	Orders handlers.PendingOrdersFetcher
}

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	// Middleware stack (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogging)
	r.Use(middleware.HostCheck)
	r.Use(middleware.CORS)
	r.Use(middleware.CSRF)

	slog.Info("router initialized",
		"middleware", []string{"requestID", "realIP", "recoverer", "requestLogging", "hostCheck", "cors", "csrf"},
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.HealthHandler(deps.Config, deps.DB, Version))

		r.Route("/view", func(r chi.Router) {
			r.Get("/", handlers.GetView(deps.View))
			r.Post("/refresh", handlers.RefreshView(deps.View))
			r.Post("/account", handlers.SelectAccount(deps.View))
			r.Post("/mode", handlers.SetViewMode(deps.View))
			r.Post("/filters", handlers.SetFilters(deps.View))
		})

		r.Route("/ads/{adID}", func(r chi.Router) {
			r.Post("/toggle-auto", handlers.AdAction(deps.View, models.ActionToggleAuto))
			r.Post("/offline", handlers.AdAction(deps.View, models.ActionOffline))
			r.Post("/activate", handlers.AdAction(deps.View, models.ActionActivate))
		})

		r.Post("/bulk-toggle", handlers.BulkToggle(deps.View))

		r.Post("/automation/toggle", handlers.ToggleAutomation(deps.View))
		r.Put("/automation/fiat-sides", handlers.SetFiatSides(deps.View))

		r.Route("/fiat-balance", func(r chi.Router) {
			r.Get("/form", handlers.GetFiatBalanceForm(deps.Batch))
			r.Post("/create-batch", handlers.CreateBatch(deps.Batch))
			r.Post("/delete-by-remark", handlers.DeleteByRemark(deps.Batch))
		})

		r.Get("/orders/pending", handlers.GetPendingOrders(deps.Orders))
		r.Get("/actions", handlers.ListActions(deps.DB))
	})

	return r
}
