//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisSummaryCache(t *testing.T) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	c := NewRedisSummaryCacheWithClient(client, "test:summary:", time.Minute, nil)
	t.Cleanup(func() { _ = c.Close() })

	_, ok := c.Get(ctx, "2025-06")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, summaryFor("2025-06")))
	got, ok := c.Get(ctx, "2025-06")
	require.True(t, ok)
	assert.Equal(t, billing.CashTally{Count: 2, Total: 250000}, got.Paid)

	ttl, err := client.TTL(ctx, "test:summary:2025-06").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Invalidate(ctx, "2025-06"))
	_, ok = c.Get(ctx, "2025-06")
	assert.False(t, ok)
}
