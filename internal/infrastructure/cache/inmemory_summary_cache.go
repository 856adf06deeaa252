package cache

import (
	"context"
	"sync"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
)

type entry struct {
	summary   billing.PeriodSummary
	expiresAt time.Time
}

// InMemorySummaryCache keeps summaries in a map.
// It serves single-instance deployments and tests.
type InMemorySummaryCache struct {
	mu      sync.RWMutex
	entries map[billing.Period]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemorySummaryCache creates an in-memory cache whose entries live for ttl
func NewInMemorySummaryCache(ttl time.Duration) *InMemorySummaryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &InMemorySummaryCache{
		entries: make(map[billing.Period]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the cached summary if it has not expired
func (c *InMemorySummaryCache) Get(ctx context.Context, period billing.Period) (*billing.PeriodSummary, bool) {
	c.mu.RLock()
	e, ok := c.entries[period]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false
	}
	s := e.summary
	return &s, true
}

// Set stores a copy of summary
func (c *InMemorySummaryCache) Set(ctx context.Context, summary *billing.PeriodSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for p, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, p)
		}
	}
	c.entries[summary.Period] = entry{summary: *summary, expiresAt: now.Add(c.ttl)}
	return nil
}

// Invalidate drops the entry for period
func (c *InMemorySummaryCache) Invalidate(ctx context.Context, period billing.Period) error {
	c.mu.Lock()
	delete(c.entries, period)
	c.mu.Unlock()
	return nil
}

// Close is a no-op
func (c *InMemorySummaryCache) Close() error { return nil }

// Size returns the number of stored entries, expired ones included
func (c *InMemorySummaryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ SummaryCache = (*InMemorySummaryCache)(nil)
