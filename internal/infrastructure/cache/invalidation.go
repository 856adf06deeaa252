package cache

import (
	"context"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/domain/shared"
)

// SummaryInvalidator drops a period's cached summary whenever a committed
// event changes that period's figures.
type SummaryInvalidator struct {
	cache SummaryCache
}

// NewSummaryInvalidator creates the invalidation handler for cache
func NewSummaryInvalidator(cache SummaryCache) *SummaryInvalidator {
	return &SummaryInvalidator{cache: cache}
}

// Handle implements shared.EventHandler
func (h *SummaryInvalidator) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(billing.AuditedEvent)
	if !ok {
		return nil
	}
	period := e.AffectedPeriod()
	if period == "" {
		return nil
	}
	return h.cache.Invalidate(ctx, period)
}

// EventTypes implements shared.EventHandler
func (h *SummaryInvalidator) EventTypes() []string {
	return []string{
		billing.EventTypeInvoicesMaterialized,
		billing.EventTypeInvoicePaid,
		billing.EventTypePaymentUndone,
		billing.EventTypeCashBatchSubmitted,
		billing.EventTypeCashBatchApproved,
	}
}

var _ shared.EventHandler = (*SummaryInvalidator)(nil)
