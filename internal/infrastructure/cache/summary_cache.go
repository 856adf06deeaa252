// Package cache holds read-side caches for billing reports.
package cache

import (
	"context"

	"github.com/netcollect/backend/internal/domain/billing"
)

// SummaryCache caches PeriodSummary by period.
// Misses and backend errors both read as a miss; callers fall back to the database.
type SummaryCache interface {
	Get(ctx context.Context, period billing.Period) (*billing.PeriodSummary, bool)
	Set(ctx context.Context, summary *billing.PeriodSummary) error
	Invalidate(ctx context.Context, period billing.Period) error
	Close() error
}

const summaryKeyPrefix = "netcollect:summary:"

func summaryKey(prefix string, period billing.Period) string {
	return prefix + period.String()
}
