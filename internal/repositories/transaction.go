package repositories

import (
	"context"
	"time"

	"github.com/sbilibin2017/gw-transaction-feed/internal/logger"
	"github.com/sbilibin2017/gw-transaction-feed/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TransactionReadRepository reads transaction documents from MongoDB.
type TransactionReadRepository struct {
	collection *mongo.Collection
	timeout    time.Duration // upper bound for a single query, zero means caller's deadline only
}

// NewTransactionReadRepository creates a repository over the given collection.
func NewTransactionReadRepository(collection *mongo.Collection, timeout time.Duration) *TransactionReadRepository {
	return &TransactionReadRepository{
		collection: collection,
		timeout:    timeout,
	}
}

// GetLatest returns up to limit documents ordered by blockTime, newest first.
// Documents are returned unchanged; an empty collection yields an empty, non-nil slice.
func (r *TransactionReadRepository) GetLatest(ctx context.Context, limit int64) ([]models.Document, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	sort := bson.D{{Key: models.TransactionSortField, Value: -1}}
	opts := options.Find().SetSort(sort).SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		logger.Log.Errorw("find transactions failed",
			"collection", r.collection.Name(),
			"sort", sort,
			"limit", limit,
			"error", err,
		)
		return nil, err
	}
	defer cursor.Close(ctx)

	var raw []bson.D
	if err := cursor.All(ctx, &raw); err != nil {
		logger.Log.Errorw("decode transactions failed",
			"collection", r.collection.Name(),
			"error", err,
		)
		return nil, err
	}

	docs := make([]models.Document, 0, len(raw))
	for _, d := range raw {
		docs = append(docs, models.Document(d))
	}

	logger.Log.Infow("find transactions",
		"collection", r.collection.Name(),
		"sort", sort,
		"limit", limit,
		"result", len(docs),
	)

	return docs, nil
}
