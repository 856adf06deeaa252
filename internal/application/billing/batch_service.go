package billing

import (
	"context"
	"strings"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// BatchService bundles a collector's daily cash into batches and approves them
type BatchService struct {
	serviceOptions
	tx       billing.TxManager
	invoices billing.InvoiceRepository
	batches  billing.CashBatchRepository
	audit    billing.AuditRepository
}

// NewBatchService creates a new BatchService
func NewBatchService(
	tx billing.TxManager,
	invoices billing.InvoiceRepository,
	batches billing.CashBatchRepository,
	audit billing.AuditRepository,
	opts ...Option,
) *BatchService {
	return &BatchService{
		serviceOptions: newServiceOptions(opts),
		tx:             tx,
		invoices:       invoices,
		batches:        batches,
		audit:          audit,
	}
}

// Today returns the current local calendar day, the default batch date
func (s *BatchService) Today() billing.Day {
	return s.today()
}

// Submit folds the collector's unbatched cash for the batch date into that
// day's PENDING batch, creating it when none exists, and locks the day's
// transfers. Batch totals are always recomputed from the attached invoices.
// An APPROVED batch for the day closes it to further submissions.
func (s *BatchService) Submit(ctx context.Context, req billing.SubmitRequest) (res *billing.SubmitResult, err error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "batch", "submit",
		telemetry.SpanAttrPeriod, req.Period.String(),
		telemetry.SpanAttrDay, req.BatchDate.String(),
		telemetry.SpanAttrCollector, req.Collector)
	defer func() { s.finish(ctx, span, "submit_batch", start, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Collector = strings.TrimSpace(req.Collector)

	now := s.now()
	window := req.BatchDate.Window(s.loc)

	var event *billing.CashBatchSubmittedEvent
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		closed, err := s.batches.ExistsForCollectorDay(ctx, req.Period, req.BatchDate, req.Collector, billing.BatchStatusApproved)
		if err != nil {
			return err
		}
		if closed {
			return billing.ErrDayClosed
		}

		pending, err := s.batches.FindForCollectorDay(ctx, req.Period, req.BatchDate, req.Collector, billing.BatchStatusPending)
		if err != nil {
			return err
		}
		if pending != nil {
			res, err = s.updatePending(ctx, pending, req, window, now)
		} else {
			res, err = s.createPending(ctx, req, window, now)
		}
		if err != nil {
			return err
		}

		event = billing.NewCashBatchSubmittedEvent(res, now)
		return s.audit.Record(ctx, event)
	})
	if err != nil {
		s.log(ctx).Info("batch submission not applied",
			zap.String("period", req.Period.String()),
			zap.String("batch_date", req.BatchDate.String()),
			zap.String("collector", req.Collector),
			zap.Error(err))
		return nil, err
	}

	s.log(ctx).Info("cash batch submitted",
		zap.Int64("batch_id", res.Batch.ID),
		zap.Bool("created", res.Created),
		zap.Int64("attached", res.Attached),
		zap.Int64("transfers_locked", res.TransfersLocked),
		zap.Int64("count", res.Batch.Count),
		zap.Int64("total_cash", res.Batch.TotalCash))
	s.publish(ctx, event)
	return res, nil
}

func (s *BatchService) updatePending(ctx context.Context, batch *billing.CashBatch, req billing.SubmitRequest, window billing.DayWindow, now time.Time) (*billing.SubmitResult, error) {
	claimed, err := s.batches.Claim(ctx, batch.ID, now)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// approved between the read and the claim
		return nil, billing.ErrDayClosed
	}

	attached, err := s.invoices.AttachUnbatchedCash(ctx, batch.ID, req.Period, req.Collector, window)
	if err != nil {
		return nil, err
	}
	if err := s.recomputeTotals(ctx, batch, now); err != nil {
		return nil, err
	}
	locked, err := s.invoices.LockTransfers(ctx, req.Period, req.Collector, window)
	if err != nil {
		return nil, err
	}
	return &billing.SubmitResult{Batch: batch, Attached: attached, TransfersLocked: locked}, nil
}

func (s *BatchService) createPending(ctx context.Context, req billing.SubmitRequest, window billing.DayWindow, now time.Time) (*billing.SubmitResult, error) {
	tally, err := s.invoices.TallyUnbatchedCash(ctx, req.Period, req.Collector, window)
	if err != nil {
		return nil, err
	}
	batch, err := billing.NewCashBatch(req.Period, req.BatchDate, req.Collector, tally, now)
	if err != nil {
		return nil, err
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, err
	}

	attached, err := s.invoices.AttachUnbatchedCash(ctx, batch.ID, req.Period, req.Collector, window)
	if err != nil {
		return nil, err
	}
	// the eligible set can change between the tally and the attach
	if err := s.recomputeTotals(ctx, batch, now); err != nil {
		return nil, err
	}
	locked, err := s.invoices.LockTransfers(ctx, req.Period, req.Collector, window)
	if err != nil {
		return nil, err
	}
	return &billing.SubmitResult{Batch: batch, Created: true, Attached: attached, TransfersLocked: locked}, nil
}

// recomputeTotals replaces the batch's count and total with a fresh sum of its members
func (s *BatchService) recomputeTotals(ctx context.Context, batch *billing.CashBatch, now time.Time) error {
	tally, err := s.invoices.TallyBatchMembers(ctx, batch.ID)
	if err != nil {
		return err
	}
	updated, err := s.batches.UpdateTotals(ctx, batch.ID, tally, now)
	if err != nil {
		return err
	}
	if !updated {
		return billing.ErrBatchNotPending
	}
	batch.Count = tally.Count
	batch.TotalCash = tally.Total
	batch.UpdatedAt = now
	return nil
}

// Approve closes a PENDING batch of period: it becomes APPROVED and every
// member invoice is marked cash-verified and locked. Approval is terminal.
func (s *BatchService) Approve(ctx context.Context, batchID int64, period billing.Period, admin string) (batch *billing.CashBatch, err error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "batch", "approve",
		telemetry.SpanAttrPeriod, period.String(),
		telemetry.SpanAttrBatchID, batchID)
	defer func() { s.finish(ctx, span, "approve_batch", start, err) }()

	if batchID <= 0 {
		return nil, billing.ErrInvalidBatchID
	}
	if period, err = billing.ParsePeriod(period.String()); err != nil {
		return nil, err
	}
	admin = strings.TrimSpace(admin)
	if admin == "" {
		return nil, billing.ErrAdminRequired
	}

	now := s.now()
	var event *billing.CashBatchApprovedEvent
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.batches.FindByID(ctx, batchID)
		if err != nil {
			return err
		}
		if current.Period != period {
			return billing.ErrBatchNotFound
		}
		if current.Status != billing.BatchStatusPending {
			return billing.ErrBatchNotPending
		}

		applied, err := s.batches.Approve(ctx, batchID, period, admin, now)
		if err != nil {
			return err
		}
		if !applied {
			return billing.ErrBatchNotPending
		}
		verified, err := s.invoices.VerifyBatchMembers(ctx, batchID)
		if err != nil {
			return err
		}

		if err := current.Approve(admin, now); err != nil {
			return err
		}
		batch = current
		event = billing.NewCashBatchApprovedEvent(batch, verified, now)
		return s.audit.Record(ctx, event)
	})
	if err != nil {
		s.log(ctx).Info("batch approval not applied",
			zap.Int64("batch_id", batchID),
			zap.String("period", period.String()),
			zap.Error(err))
		return nil, err
	}

	s.log(ctx).Info("cash batch approved",
		zap.Int64("batch_id", batch.ID),
		zap.String("collector", batch.Collector),
		zap.String("approved_by", admin),
		zap.Int64("verified", event.Verified),
		zap.Int64("total_cash", batch.TotalCash))
	s.publish(ctx, event)
	return batch, nil
}
