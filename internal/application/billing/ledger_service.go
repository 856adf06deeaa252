package billing

import (
	"context"
	"strings"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PayCommand is a collector's request to mark an invoice paid
type PayCommand struct {
	Period     billing.Period
	CustomerID string
	Method     billing.PaymentMethod
	Collector  string
}

// LedgerService materializes, pays and undoes invoices
type LedgerService struct {
	serviceOptions
	tx        billing.TxManager
	customers billing.CustomerRepository
	invoices  billing.InvoiceRepository
	batches   billing.CashBatchRepository
	reports   billing.ReportRepository
	audit     billing.AuditRepository
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	tx billing.TxManager,
	customers billing.CustomerRepository,
	invoices billing.InvoiceRepository,
	batches billing.CashBatchRepository,
	reports billing.ReportRepository,
	audit billing.AuditRepository,
	opts ...Option,
) *LedgerService {
	return &LedgerService{
		serviceOptions: newServiceOptions(opts),
		tx:             tx,
		customers:      customers,
		invoices:       invoices,
		batches:        batches,
		reports:        reports,
		audit:          audit,
	}
}

// EnsurePeriod creates an UNPAID invoice for every active customer that has
// none in period, snapshotting the customer's current fee. Existing invoices
// are never touched. Returns the number of invoices created.
func (s *LedgerService) EnsurePeriod(ctx context.Context, period billing.Period) (created int64, err error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "ledger", "ensure_period",
		telemetry.SpanAttrPeriod, period.String())
	defer func() { s.finish(ctx, span, "ensure_period", start, err) }()

	if period, err = billing.ParsePeriod(period.String()); err != nil {
		return 0, err
	}

	now := s.now()
	var event *billing.InvoicesMaterializedEvent
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		customers, err := s.customers.ListActive(ctx)
		if err != nil {
			return err
		}
		invoices := make([]*billing.Invoice, 0, len(customers))
		for i := range customers {
			invoices = append(invoices, customers[i].NewInvoice(period, now))
		}
		created, err = s.invoices.CreateMissing(ctx, invoices)
		if err != nil {
			return err
		}
		if created == 0 {
			return nil
		}
		event = billing.NewInvoicesMaterializedEvent(period, created, now)
		return s.audit.Record(ctx, event)
	})
	if err != nil {
		s.log(ctx).Error("ensure period failed", zap.String("period", period.String()), zap.Error(err))
		return 0, err
	}

	if event != nil {
		s.log(ctx).Info("invoices materialized",
			zap.String("period", period.String()),
			zap.Int64("created", created))
		s.publish(ctx, event)
	}
	return created, nil
}

// Pay marks the (period, customer) invoice paid by the collector.
// Exactly one of any number of concurrent Pay calls on the same invoice applies.
func (s *LedgerService) Pay(ctx context.Context, cmd PayCommand) (inv *billing.Invoice, err error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "ledger", "pay",
		telemetry.SpanAttrPeriod, cmd.Period.String(),
		telemetry.SpanAttrCustomerID, cmd.CustomerID,
		telemetry.SpanAttrMethod, cmd.Method.String(),
		telemetry.SpanAttrCollector, cmd.Collector)
	defer func() { s.finish(ctx, span, "pay", start, err) }()

	period, err := billing.ParsePeriod(cmd.Period.String())
	if err != nil {
		return nil, err
	}
	customerID := strings.TrimSpace(cmd.CustomerID)
	if customerID == "" {
		return nil, billing.ErrCustomerRequired
	}
	method, err := billing.ParsePaymentMethod(cmd.Method.String())
	if err != nil {
		return nil, err
	}
	now := s.now()
	payment, err := billing.NewPayment(method, cmd.Collector, now)
	if err != nil {
		return nil, err
	}
	today := billing.DayOf(now, s.loc)

	var event *billing.InvoicePaidEvent
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.invoices.FindByPeriodAndCustomer(ctx, period, customerID)
		if err != nil {
			return err
		}
		if err := s.payBlocker(ctx, current, period, today, payment.Collector); err != nil {
			return err
		}

		applied, err := s.invoices.MarkPaid(ctx, period, customerID, payment, today)
		if err != nil {
			return err
		}
		if !applied {
			// Lost a race; re-read to report why.
			return s.explainPayMiss(ctx, period, customerID, today, payment.Collector)
		}

		if err := current.MarkPaid(payment); err != nil {
			return err
		}
		inv = current
		event = billing.NewInvoicePaidEvent(inv, payment)
		return s.audit.Record(ctx, event)
	})
	if err != nil {
		s.log(ctx).Info("payment not applied",
			zap.String("period", period.String()),
			zap.String("customer_id", customerID),
			zap.String("collector", payment.Collector),
			zap.Error(err))
		return nil, err
	}

	s.log(ctx).Info("invoice paid",
		zap.Int64("invoice_id", inv.ID),
		zap.String("period", period.String()),
		zap.String("customer_id", customerID),
		zap.String("method", method.String()),
		zap.String("collector", payment.Collector),
		zap.Int64("amount", inv.Amount))
	s.publish(ctx, event)
	return inv, nil
}

// payBlocker reports the specific reason a payment cannot apply, if any
func (s *LedgerService) payBlocker(ctx context.Context, inv *billing.Invoice, period billing.Period, today billing.Day, collector string) error {
	if err := inv.CanPay(); err != nil {
		return err
	}
	closed, err := s.batches.ExistsForCollectorDay(ctx, period, today, collector, billing.BatchStatusApproved)
	if err != nil {
		return err
	}
	if closed {
		return billing.ErrDayClosed
	}
	return nil
}

func (s *LedgerService) explainPayMiss(ctx context.Context, period billing.Period, customerID string, today billing.Day, collector string) error {
	inv, err := s.invoices.FindByPeriodAndCustomer(ctx, period, customerID)
	if err != nil {
		return err
	}
	if err := s.payBlocker(ctx, inv, period, today, collector); err != nil {
		return err
	}
	return billing.ErrInvoiceChanged
}

// Undo reverts a payment made today that is not locked and, for cash, not yet batched
func (s *LedgerService) Undo(ctx context.Context, invoiceID int64, period billing.Period) (inv *billing.Invoice, err error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "ledger", "undo",
		telemetry.SpanAttrPeriod, period.String(),
		telemetry.SpanAttrInvoiceID, invoiceID)
	defer func() { s.finish(ctx, span, "undo", start, err) }()

	if invoiceID <= 0 {
		return nil, billing.ErrInvalidInvoiceID
	}
	if period, err = billing.ParsePeriod(period.String()); err != nil {
		return nil, err
	}

	now := s.now()
	window := billing.DayOf(now, s.loc).Window(s.loc)

	var event *billing.PaymentUndoneEvent
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.invoices.FindByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if current.Period != period {
			return billing.ErrInvoiceNotFound
		}
		if err := current.UndoBlocker(now, s.loc); err != nil {
			return err
		}

		applied, err := s.invoices.Undo(ctx, invoiceID, period, window)
		if err != nil {
			return err
		}
		if !applied {
			return billing.ErrInvoiceChanged
		}

		before := *current
		if err := current.Undo(now, s.loc); err != nil {
			return err
		}
		inv = current
		event = billing.NewPaymentUndoneEvent(&before, now)
		return s.audit.Record(ctx, event)
	})
	if err != nil {
		s.log(ctx).Info("undo not applied",
			zap.Int64("invoice_id", invoiceID),
			zap.String("period", period.String()),
			zap.Error(err))
		return nil, err
	}

	s.log(ctx).Info("payment undone",
		zap.Int64("invoice_id", invoiceID),
		zap.String("period", period.String()),
		zap.String("collector", event.Collector))
	s.publish(ctx, event)
	return inv, nil
}

// Receipt returns an invoice together with its customer
func (s *LedgerService) Receipt(ctx context.Context, invoiceID int64) (*billing.Receipt, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "ledger", "receipt",
		telemetry.SpanAttrInvoiceID, invoiceID)
	defer span.End()

	if invoiceID <= 0 {
		return nil, billing.ErrInvalidInvoiceID
	}
	receipt, err := s.reports.Receipt(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return receipt, nil
}
