package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sbilibin2017/gw-transaction-feed/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// --- Setup MongoDB ---
func setupMongo(t *testing.T) (*mongo.Database, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	uri := fmt.Sprintf("mongodb://%s:%s", host, port.Port())
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	return client.Database("test"), func() {
		_ = client.Disconnect(ctx)
		_ = container.Terminate(ctx)
	}
}

// seedTransactions inserts n documents with blockTime 1..n in shuffled order.
func seedTransactions(t *testing.T, coll *mongo.Collection, n int) {
	t.Helper()
	if n == 0 {
		return
	}

	docs := make([]any, 0, n)
	for i := 0; i < n; i++ {
		// 7 is coprime with the sizes used below, so this visits every blockTime once.
		bt := int64((i*7)%n + 1)
		docs = append(docs, bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "signature", Value: fmt.Sprintf("sig-%03d", bt)},
			{Key: "blockTime", Value: bt},
			{Key: "meta", Value: bson.D{{Key: "fee", Value: int32(5000)}, {Key: "err", Value: nil}}},
		})
	}
	_, err := coll.InsertMany(context.Background(), docs)
	require.NoError(t, err)
}

func blockTimes(t *testing.T, docs []models.Document) []int64 {
	t.Helper()
	out := make([]int64, 0, len(docs))
	for _, d := range docs {
		v, ok := d.Lookup("blockTime")
		require.True(t, ok)
		out = append(out, v.(int64))
	}
	return out
}

func TestTransactionReadRepository_GetLatest(t *testing.T) {
	db, teardown := setupMongo(t)
	defer teardown()

	ctx := context.Background()

	t.Run("returns 50 newest of a larger collection", func(t *testing.T) {
		coll := db.Collection("tx_large")
		seedTransactions(t, coll, 61)
		repo := NewTransactionReadRepository(coll, 5*time.Second)

		docs, err := repo.GetLatest(ctx, models.TransactionFeedLimit)
		require.NoError(t, err)
		require.Len(t, docs, 50)

		got := blockTimes(t, docs)
		for i, bt := range got {
			assert.Equal(t, int64(61-i), bt)
		}
	})

	t.Run("returns every document of a small collection", func(t *testing.T) {
		coll := db.Collection("tx_small")
		seedTransactions(t, coll, 3)
		repo := NewTransactionReadRepository(coll, 5*time.Second)

		docs, err := repo.GetLatest(ctx, models.TransactionFeedLimit)
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 2, 1}, blockTimes(t, docs))
	})

	t.Run("empty collection yields empty slice", func(t *testing.T) {
		repo := NewTransactionReadRepository(db.Collection("tx_empty"), 5*time.Second)

		docs, err := repo.GetLatest(ctx, models.TransactionFeedLimit)
		require.NoError(t, err)
		assert.NotNil(t, docs)
		assert.Empty(t, docs)
	})

	t.Run("documents are passed through unchanged", func(t *testing.T) {
		coll := db.Collection("tx_passthrough")
		id := primitive.NewObjectID()
		stored := bson.D{
			{Key: "_id", Value: id},
			{Key: "zeta", Value: "last-key-first"},
			{Key: "blockTime", Value: int64(42)},
			{Key: "accounts", Value: bson.A{"a", "b"}},
		}
		_, err := coll.InsertOne(ctx, stored)
		require.NoError(t, err)

		repo := NewTransactionReadRepository(coll, 5*time.Second)
		docs, err := repo.GetLatest(ctx, models.TransactionFeedLimit)
		require.NoError(t, err)
		require.Len(t, docs, 1)

		assert.Equal(t, models.Document{
			{Key: "_id", Value: id},
			{Key: "zeta", Value: "last-key-first"},
			{Key: "blockTime", Value: int64(42)},
			{Key: "accounts", Value: primitive.A{"a", "b"}},
		}, docs[0])
	})

	t.Run("repeated reads are identical", func(t *testing.T) {
		repo := NewTransactionReadRepository(db.Collection("tx_large"), 5*time.Second)

		first, err := repo.GetLatest(ctx, models.TransactionFeedLimit)
		require.NoError(t, err)
		second, err := repo.GetLatest(ctx, models.TransactionFeedLimit)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestTransactionReadRepository_GetLatest_Unreachable(t *testing.T) {
	ctx := context.Background()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(300*time.Millisecond))
	require.NoError(t, err)
	defer client.Disconnect(ctx)

	repo := NewTransactionReadRepository(client.Database("test").Collection("transactions"), time.Second)

	docs, err := repo.GetLatest(ctx, models.TransactionFeedLimit)
	assert.Error(t, err)
	assert.Nil(t, docs)
}
