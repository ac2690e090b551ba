package handlers

//go:generate mockgen -source=health.go -destination=health_mock.go -package=handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sbilibin2017/gw-transaction-feed/internal/logger"
	"github.com/sbilibin2017/gw-transaction-feed/internal/models"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Pinger checks that the storage is reachable.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// NewHealthHandler returns an HTTP handler reporting storage reachability.
// @Summary Health check
// @Description Pings the MongoDB primary
// @Tags health
// @Produce json
// @Success 200 {object} models.HealthResponse "Storage reachable"
// @Failure 503 {object} models.HealthResponse "Storage unavailable"
// @Router /healthz [get]
func NewHealthHandler(pinger Pinger, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")

		if err := pinger.Ping(ctx, readpref.Primary()); err != nil {
			logger.Log.Warnw("health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(models.HealthResponse{Status: models.HealthStatusUnavailable})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(models.HealthResponse{Status: models.HealthStatusOK})
	}
}
