package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// RedisSummaryCache stores summaries as JSON strings with a TTL
type RedisSummaryCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisSummaryCache connects to Redis and verifies the connection
func NewRedisSummaryCache(cfg RedisConfig, logger *zap.Logger) (*RedisSummaryCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSummaryCacheWithClient(client, "", cfg.TTL, logger), nil
}

// NewRedisSummaryCacheWithClient wraps an existing client
func NewRedisSummaryCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration, logger *zap.Logger) *RedisSummaryCache {
	if keyPrefix == "" {
		keyPrefix = summaryKeyPrefix
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSummaryCache{client: client, keyPrefix: keyPrefix, ttl: ttl, logger: logger}
}

// Get returns the cached summary for period
func (c *RedisSummaryCache) Get(ctx context.Context, period billing.Period) (*billing.PeriodSummary, bool) {
	raw, err := c.client.Get(ctx, summaryKey(c.keyPrefix, period)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("summary cache read failed", zap.String("period", period.String()), zap.Error(err))
		}
		return nil, false
	}

	var s billing.PeriodSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		c.logger.Warn("summary cache entry unreadable", zap.String("period", period.String()), zap.Error(err))
		return nil, false
	}
	return &s, true
}

// Set stores summary under its period
func (c *RedisSummaryCache) Set(ctx context.Context, summary *billing.PeriodSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := c.client.Set(ctx, summaryKey(c.keyPrefix, summary.Period), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache summary: %w", err)
	}
	return nil
}

// Invalidate drops the cached summary for period
func (c *RedisSummaryCache) Invalidate(ctx context.Context, period billing.Period) error {
	if err := c.client.Del(ctx, summaryKey(c.keyPrefix, period)).Err(); err != nil {
		return fmt.Errorf("invalidate summary: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisSummaryCache) Close() error {
	return c.client.Close()
}

var _ SummaryCache = (*RedisSummaryCache)(nil)
