package handlers

//go:generate mockgen -source=transaction.go -destination=transaction_mock.go -package=handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sbilibin2017/gw-transaction-feed/internal/logger"
	"github.com/sbilibin2017/gw-transaction-feed/internal/middlewares"
	"github.com/sbilibin2017/gw-transaction-feed/internal/models"
)

// TransactionLister defines the interface that the service must implement.
type TransactionLister interface {
	ListLatest(ctx context.Context) ([]models.Document, error)
}

// NewListTransactionsHandler returns an HTTP handler for the latest transactions feed.
// @Summary List latest transactions
// @Description Returns up to 50 stored transaction documents ordered by blockTime, newest first. Documents are returned as stored.
// @Tags transactions
// @Produce json
// @Success 200 {array} models.Document "Latest transactions"
// @Failure 500 {object} models.ErrorResponse "Server error occurred"
// @Router /api/transactions [get]
func NewListTransactionsHandler(svc TransactionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		docs, err := svc.ListLatest(ctx)
		if err != nil {
			logger.Log.Errorw("failed to list transactions",
				"request_id", middlewares.GetRequestIDFromContext(ctx),
				"error", err,
			)
			writeServerError(w)
			return
		}

		// A failed encode must still produce the error response, so nothing is written before it.
		body, err := json.Marshal(docs)
		if err != nil {
			logger.Log.Errorw("failed to encode transactions",
				"request_id", middlewares.GetRequestIDFromContext(ctx),
				"count", len(docs),
				"error", err,
			)
			writeServerError(w)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

// RegisterListTransactionsHandler registers the transactions feed route
func RegisterListTransactionsHandler(r chi.Router, h http.HandlerFunc) {
	r.Get("/transactions", h)
}

// writeServerError writes the generic failure body shared by every endpoint.
func writeServerError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(models.NewServerErrorResponse())
}
