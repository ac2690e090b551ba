package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/gw-transaction-feed/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTransactionCacheRepository(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7.0-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	}
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer redisC.Terminate(ctx)

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", host, port.Port()),
	})
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx).Err())

	t.Run("Get before Set is a miss", func(t *testing.T) {
		repo := NewTransactionCacheRepository(rdb, "test", "missing", time.Minute)

		_, err := repo.GetLatest(ctx)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("Set and Get keep bson types and order", func(t *testing.T) {
		repo := NewTransactionCacheRepository(rdb, "test", "transactions", time.Minute)
		id := primitive.NewObjectID()
		at := primitive.NewDateTimeFromTime(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))
		docs := []models.Document{
			{
				{Key: "_id", Value: id},
				{Key: "blockTime", Value: int64(2)},
				{Key: "at", Value: at},
				{Key: "meta", Value: primitive.D{{Key: "fee", Value: int32(5)}}},
			},
			{
				{Key: "blockTime", Value: int64(1)},
			},
		}

		require.NoError(t, repo.SetLatest(ctx, docs))

		got, err := repo.GetLatest(ctx)
		require.NoError(t, err)
		assert.Equal(t, docs, got)
	})

	t.Run("empty feed is cached as empty", func(t *testing.T) {
		repo := NewTransactionCacheRepository(rdb, "test", "empty", time.Minute)

		require.NoError(t, repo.SetLatest(ctx, []models.Document{}))

		got, err := repo.GetLatest(ctx)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("cached feed expires", func(t *testing.T) {
		repo := NewTransactionCacheRepository(rdb, "test", "expiring", time.Second)

		require.NoError(t, repo.SetLatest(ctx, []models.Document{{{Key: "blockTime", Value: int64(1)}}}))
		time.Sleep(2 * time.Second)

		_, err := repo.GetLatest(ctx)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})
}
