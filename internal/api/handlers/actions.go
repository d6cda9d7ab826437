package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Fantasim/p2pads/internal/config"
	"github.com/Fantasim/p2pads/internal/db"
	"github.com/Fantasim/p2pads/internal/models"
)

// ListActions handles GET /api/actions. Supports limit, credential_id, kind
// and batch_id query parameters.
func ListActions(database *db.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		q := r.URL.Query()

		filter := db.ActionFilter{
			CredentialID: q.Get("credential_id"),
			Kind:         q.Get("kind"),
			BatchID:      q.Get("batch_id"),
			Limit:        parseIntParam(r, "limit", config.JournalDefault),
		}

		actions, total, err := database.ListActions(r.Context(), filter)
		if err != nil {
			slog.Error("failed to list actions", "error", err)
			writeError(w, http.StatusInternalServerError, config.ErrorDatabase, "failed to list actions")
			return
		}

		elapsed := time.Since(start).Milliseconds()
		slog.Debug("actions listed",
			"returned", len(actions),
			"total", total,
			"elapsed_ms", elapsed,
		)

		writeJSON(w, http.StatusOK, models.APIResponse{
			Data: actions,
			Meta: &models.APIMeta{Total: total, ExecutionTime: elapsed},
		})
	}
}
