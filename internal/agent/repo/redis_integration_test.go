package repo

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	endpoint, err := c.Endpoint(ctx, "")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func TestRedisConversationRepository(t *testing.T) {
	rdb := startRedis(t)
	exerciseRepository(t, NewRedisConversationRepository(rdb, time.Hour))
}

func TestRedisConversationRepository_KeyAndTTL(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()
	r := NewRedisConversationRepository(rdb, time.Hour)

	require.NoError(t, r.SaveHistory(ctx, "t1", sampleTurns()))

	n, err := rdb.LLen(ctx, "conversation:t1:messages").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	ttl, err := rdb.TTL(ctx, "conversation:t1:messages").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	require.NoError(t, r.SaveHistory(ctx, "t1", nil))
	exists, err := rdb.Exists(ctx, "conversation:t1:messages").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}
