package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Fantasim/p2pads/internal/adfilter"
	"github.com/Fantasim/p2pads/internal/adsview"
	"github.com/Fantasim/p2pads/internal/config"
	"github.com/Fantasim/p2pads/internal/models"
)

// writePage writes the current ads page model.
func writePage(w http.ResponseWriter, view *adsview.View, start time.Time) {
	writeJSON(w, http.StatusOK, models.APIResponse{
		Data: view.Page(),
		Meta: &models.APIMeta{ExecutionTime: time.Since(start).Milliseconds()},
	})
}

// GetView handles GET /api/view.
func GetView(view *adsview.View) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writePage(w, view, time.Now())
	}
}

// RefreshView handles POST /api/view/refresh.
func RefreshView(view *adsview.View) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if err := view.Refresh(r.Context()); err != nil {
			slog.Warn("ads page refresh failed", "error", err)
			writeFailure(w, err)
			return
		}
		writePage(w, view, start)
	}
}

type selectAccountRequest struct {
	CredentialID string `json:"credential_id"`
}

// SelectAccount handles POST /api/view/account.
func SelectAccount(view *adsview.View) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req selectAccountRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := view.SelectAccount(req.CredentialID); err != nil {
			writeFailure(w, err)
			return
		}
		writePage(w, view, start)
	}
}

type setModeRequest struct {
	Mode models.ViewMode `json:"mode"`
}

// SetViewMode handles POST /api/view/mode.
func SetViewMode(view *adsview.View) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req setModeRequest
		if !decodeBody(w, r, &req) {
			return
		}

		slog.Info("view mode change requested", "mode", req.Mode)

		if err := view.SetViewMode(r.Context(), req.Mode); err != nil {
			writeFailure(w, err)
			return
		}
		writePage(w, view, start)
	}
}

// SetFilters handles POST /api/view/filters.
func SetFilters(view *adsview.View) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var c adfilter.Criteria
		if !decodeBody(w, r, &c) {
			return
		}
		if err := view.SetFilters(c); err != nil {
			writeFailure(w, err)
			return
		}
		writePage(w, view, start)
	}
}

// AdAction handles POST /api/ads/{adID}/toggle-auto, /offline and /activate.
func AdAction(view *adsview.View, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		adID := chi.URLParam(r, "adID")

		slog.Info("ad action requested",
			"kind", kind,
			"adID", adID,
			"remoteAddr", r.RemoteAddr,
		)

		var err error
		switch kind {
		case models.ActionToggleAuto:
			err = view.ToggleAd(r.Context(), adID)
		case models.ActionOffline:
			err = view.SetAdOffline(r.Context(), adID)
		case models.ActionActivate:
			err = view.ActivateAd(r.Context(), adID)
		default:
			slog.Error("unknown ad action", "kind", kind)
			writeError(w, http.StatusNotFound, config.ErrorNotFound, "unknown ad action: "+kind)
			return
		}
		if err != nil {
			writeFailure(w, err)
			return
		}
		writePage(w, view, start)
	}
}

type bulkToggleRequest struct {
	Enable bool `json:"enable"`
}

// BulkToggle handles POST /api/bulk-toggle. The response carries the batch
// outcome; an aborted batch is reported with the failing ad's error.
func BulkToggle(view *adsview.View) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkToggleRequest
		if !decodeBody(w, r, &req) {
			return
		}

		// A batch stops only at a failing toggle, never because the client
		// went away.
		out, err := view.BulkToggle(context.WithoutCancel(r.Context()), req.Enable)
		if err != nil {
			writeFailure(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{
			Data: out,
			Meta: &models.APIMeta{
				Total:         int64(len(out.Targets)),
				ExecutionTime: out.ElapsedMs,
			},
		})
	}
}

// ToggleAutomation handles POST /api/automation/toggle.
func ToggleAutomation(view *adsview.View) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if err := view.ToggleAutomation(r.Context()); err != nil {
			writeFailure(w, err)
			return
		}
		writePage(w, view, start)
	}
}

// SetFiatSides handles PUT /api/automation/fiat-sides.
func SetFiatSides(view *adsview.View) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req models.FiatAutomationStartRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := view.SetFiatSides(req.Sell, req.Buy); err != nil {
			writeFailure(w, err)
			return
		}
		writePage(w, view, start)
	}
}
