package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/gw-transaction-feed/internal/logger"
	"github.com/sbilibin2017/gw-transaction-feed/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrCacheMiss is returned when no cached feed exists.
var ErrCacheMiss = errors.New("transactions not found in cache")

// cachedTransactions is the BSON payload stored in Redis. ObjectIDs, dates and
// decimals keep their BSON types across the round trip.
type cachedTransactions struct {
	Items []bson.D `bson:"items"`
}

// TransactionCacheRepository caches the latest transaction feed in Redis.
type TransactionCacheRepository struct {
	client *redis.Client
	key    string
	exp    time.Duration // expiration duration for the cached feed
}

// NewTransactionCacheRepository creates a cache scoped to one database collection.
func NewTransactionCacheRepository(client *redis.Client, database, collection string, expiration time.Duration) *TransactionCacheRepository {
	return &TransactionCacheRepository{
		client: client,
		key:    fmt.Sprintf("transactions:latest:%s:%s", database, collection),
		exp:    expiration,
	}
}

// GetLatest returns the cached feed or ErrCacheMiss.
func (r *TransactionCacheRepository) GetLatest(ctx context.Context) ([]models.Document, error) {
	val, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logger.Log.Debugw("cache miss", "key", r.key)
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var payload cachedTransactions
	if err := bson.Unmarshal(val, &payload); err != nil {
		return nil, fmt.Errorf("decode cached transactions: %w", err)
	}

	docs := make([]models.Document, 0, len(payload.Items))
	for _, d := range payload.Items {
		docs = append(docs, models.Document(d))
	}

	logger.Log.Debugw("cache hit", "key", r.key, "result", len(docs))
	return docs, nil
}

// SetLatest stores the feed with the configured expiration.
func (r *TransactionCacheRepository) SetLatest(ctx context.Context, docs []models.Document) error {
	payload := cachedTransactions{Items: make([]bson.D, 0, len(docs))}
	for _, d := range docs {
		payload.Items = append(payload.Items, bson.D(d))
	}

	val, err := bson.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode transactions for cache: %w", err)
	}

	err = r.client.Set(ctx, r.key, val, r.exp).Err()
	logger.Log.Debugw("cache set", "key", r.key, "items", len(docs), "error", err)
	return err
}
