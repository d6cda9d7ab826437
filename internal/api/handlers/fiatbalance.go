package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Fantasim/p2pads/internal/batch"
	"github.com/Fantasim/p2pads/internal/models"
)

// formFromQuery reads a create-page selection from query parameters:
// credential_id, comma-separated tokens and fiats, and repeated
// buy=TOKEN:QTY entries. Unparseable quantities are ignored.
func formFromQuery(q url.Values) batch.Form {
	f := batch.Form{
		CredentialID: q.Get("credential_id"),
		Tokens:       splitList(q.Get("tokens")),
		Fiats:        splitList(q.Get("fiats")),
	}
	for _, entry := range q["buy"] {
		token, raw, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		qty, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			slog.Debug("ignoring invalid buy quantity", "entry", entry, "error", err)
			continue
		}
		if f.BuyQuantities == nil {
			f.BuyQuantities = make(map[string]decimal.Decimal)
		}
		f.BuyQuantities[strings.ToUpper(strings.TrimSpace(token))] = qty
	}
	return f
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetFiatBalanceForm handles GET /api/fiat-balance/form. The backend config is
// fetched on first use or when reload=true; a failed fetch is reported in the
// form's config_error and the previous config is kept.
func GetFiatBalanceForm(svc *batch.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		q := r.URL.Query()
		form := formFromQuery(q)

		view := svc.Describe(form)
		if view.Config == nil || q.Get("reload") == "true" {
			if _, err := svc.LoadConfig(r.Context()); err != nil {
				slog.Warn("fiat-balance form served without fresh config", "error", err)
			}
			view = svc.Describe(form)
		}

		writeJSON(w, http.StatusOK, models.APIResponse{
			Data: view,
			Meta: &models.APIMeta{ExecutionTime: time.Since(start).Milliseconds()},
		})
	}
}

// CreateBatch handles POST /api/fiat-balance/create-batch.
func CreateBatch(svc *batch.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var form batch.Form
		if !decodeBody(w, r, &form) {
			return
		}

		slog.Info("batch creation requested",
			"credentialID", form.CredentialID,
			"tokens", form.Tokens,
			"fiats", form.Fiats,
			"remoteAddr", r.RemoteAddr,
		)

		results, err := svc.Submit(r.Context(), form)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeResults(w, results, start)
	}
}

// DeleteByRemark handles POST /api/fiat-balance/delete-by-remark.
func DeleteByRemark(svc *batch.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req models.DeleteByRemarkRequest
		if !decodeBody(w, r, &req) {
			return
		}

		slog.Info("delete by remark requested",
			"credentialID", req.CredentialID,
			"remark", req.Remark,
			"remoteAddr", r.RemoteAddr,
		)

		results, err := svc.DeleteByRemark(r.Context(), req.CredentialID, req.Remark)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeResults(w, results, start)
	}
}

func writeResults(w http.ResponseWriter, results []models.BatchResult, start time.Time) {
	if results == nil {
		results = []models.BatchResult{}
	}
	writeJSON(w, http.StatusOK, models.APIResponse{
		Data: results,
		Meta: &models.APIMeta{
			Total:         int64(len(results)),
			ExecutionTime: time.Since(start).Milliseconds(),
		},
	})
}

