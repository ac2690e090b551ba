package middlewares

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sbilibin2017/gw-transaction-feed/internal/logger"
	"github.com/sbilibin2017/gw-transaction-feed/internal/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SessionStarter starts MongoDB sessions. *mongo.Client implements it.
type SessionStarter interface {
	StartSession(opts ...*options.SessionOptions) (mongo.Session, error)
}

// SessionMiddleware scopes a MongoDB session to each request.
// The session is bound to the request context, so every driver call made with it
// runs on that session, and it is ended on every exit path including panics.
func SessionMiddleware(starter SessionStarter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := starter.StartSession()
			if err != nil {
				logger.Log.Errorw("failed to start mongo session",
					"request_id", GetRequestIDFromContext(r.Context()),
					"error", err,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(models.NewServerErrorResponse())
				return
			}
			defer sess.EndSession(context.WithoutCancel(r.Context()))

			ctx := mongo.NewSessionContext(r.Context(), sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
