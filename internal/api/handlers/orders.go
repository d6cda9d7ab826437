package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Fantasim/p2pads/internal/models"
)

// PendingOrdersFetcher returns open orders grouped by account.
type PendingOrdersFetcher interface {
	FetchPendingOrders(ctx context.Context) ([]models.AccountPendingOrders, error)
}

// GetPendingOrders handles GET /api/orders/pending by passing the backend's
// answer through.
func GetPendingOrders(fetcher PendingOrdersFetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		accounts, err := fetcher.FetchPendingOrders(r.Context())
		if err != nil {
			slog.Error("failed to fetch pending orders", "error", err)
			writeFailure(w, err)
			return
		}
		if accounts == nil {
			accounts = []models.AccountPendingOrders{}
		}

		var total int64
		for _, a := range accounts {
			total += int64(len(a.Orders))
		}

		writeJSON(w, http.StatusOK, models.APIResponse{
			Data: accounts,
			Meta: &models.APIMeta{
				Total:         total,
				ExecutionTime: time.Since(start).Milliseconds(),
			},
		})
	}
}
