package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Fantasim/p2pads/internal/config"
)

// Pinger is the journal store as seen by the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

const healthPingTimeout = 2 * time.Second

// HealthHandler serves GET /api/health. A journal that does not answer turns
// the status to "degraded" with 503.
func HealthHandler(cfg *config.Config, journal Pinger, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{
			"status":  "ok",
			"version": version,
			"backend": cfg.APIBaseURL,
			"dbPath":  cfg.DBPath,
			"journal": "ok",
		}
		status := http.StatusOK

		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		if err := journal.Ping(ctx); err != nil {
			slog.Warn("health: journal ping failed", "error", err)
			body["status"] = "degraded"
			body["journal"] = err.Error()
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, body)
	}
}
