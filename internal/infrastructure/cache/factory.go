package cache

import (
	"github.com/netcollect/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewSummaryCache picks the summary cache for cfg.
// With Redis disabled the in-memory cache is used; an unreachable Redis
// falls back to it with a warning.
func NewSummaryCache(cfg config.RedisConfig, logger *zap.Logger) SummaryCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Info("using in-memory summary cache")
		return NewInMemorySummaryCache(cfg.SummaryTTL)
	}

	c, err := NewRedisSummaryCache(RedisConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
		TTL:      cfg.SummaryTTL,
	}, logger)
	if err != nil {
		logger.Warn("Redis unavailable, falling back to in-memory summary cache. "+
			"Summaries may be stale on other instances until their TTL expires.",
			zap.Error(err),
		)
		return NewInMemorySummaryCache(cfg.SummaryTTL)
	}

	logger.Info("using Redis summary cache")
	return c
}
