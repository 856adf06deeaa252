package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Outcome label values for netcollect_operations_total
const (
	OutcomeApplied = "applied"
	OutcomeFailure = "failure"
)

// BillingMetrics counts collection activity. Operation outcomes are recorded
// by the services; money flows are counted from committed domain events.
// A nil *BillingMetrics records nothing.
type BillingMetrics struct {
	operationsTotal   *Counter
	operationDuration *Histogram
	paymentsTotal     *Counter
	paymentAmount     *Counter
	undoTotal         *Counter
	batchesSubmitted  *Counter
	batchesApproved   *Counter
	verifiedCash      *Counter
	invoicesCreated   *Counter
}

// NewBillingMetrics creates the billing instruments on meter
func NewBillingMetrics(meter metric.Meter) (*BillingMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &BillingMetrics{}
	counters := []struct {
		dst               **Counter
		name, desc, unit string
	}{
		{&m.operationsTotal, "netcollect_operations_total", "Service operations by outcome", "{operation}"},
		{&m.paymentsTotal, "netcollect_payments_total", "Invoices marked paid", "{invoice}"},
		{&m.paymentAmount, "netcollect_payment_amount_total", "Amount marked paid", "{currency}"},
		{&m.undoTotal, "netcollect_payment_undo_total", "Payments undone", "{invoice}"},
		{&m.batchesSubmitted, "netcollect_cash_batches_submitted_total", "Cash batch submissions", "{batch}"},
		{&m.batchesApproved, "netcollect_cash_batches_approved_total", "Cash batches approved", "{batch}"},
		{&m.verifiedCash, "netcollect_verified_cash_amount_total", "Cash amount verified by approval", "{currency}"},
		{&m.invoicesCreated, "netcollect_invoices_created_total", "Invoices materialized for a period", "{invoice}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	var err error
	m.operationDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "netcollect_operation_duration_seconds",
		Description: "Service operation latency",
		Unit:        "s",
		Boundaries:  OperationDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordOperation records one service call that started at start
func (m *BillingMetrics) RecordOperation(ctx context.Context, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operationsTotal.Inc(ctx, AttrOperation.String(operation), AttrOutcome.String(OutcomeOf(err)))
	m.operationDuration.RecordDuration(ctx, time.Since(start), AttrOperation.String(operation))
}

// OutcomeOf maps an operation error to its outcome label
func OutcomeOf(err error) string {
	if err == nil {
		return OutcomeApplied
	}
	if kind := shared.KindOf(err); kind != "" {
		return strings.ToLower(string(kind))
	}
	return OutcomeFailure
}

// Handle implements shared.EventHandler
func (m *BillingMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	if m == nil {
		return nil
	}
	switch e := event.(type) {
	case *billing.InvoicesMaterializedEvent:
		m.invoicesCreated.Add(ctx, e.Created)
	case *billing.InvoicePaidEvent:
		method := AttrMethod.String(e.Method.String())
		m.paymentsTotal.Inc(ctx, method)
		m.paymentAmount.Add(ctx, e.Amount, method)
	case *billing.PaymentUndoneEvent:
		m.undoTotal.Inc(ctx, AttrMethod.String(e.Method.String()))
	case *billing.CashBatchSubmittedEvent:
		m.batchesSubmitted.Inc(ctx, AttrCollector.String(e.Collector))
	case *billing.CashBatchApprovedEvent:
		m.batchesApproved.Inc(ctx, AttrCollector.String(e.Collector))
		m.verifiedCash.Add(ctx, e.TotalCash, AttrCollector.String(e.Collector))
	}
	return nil
}

// EventTypes implements shared.EventHandler
func (m *BillingMetrics) EventTypes() []string {
	return []string{
		billing.EventTypeInvoicesMaterialized,
		billing.EventTypeInvoicePaid,
		billing.EventTypePaymentUndone,
		billing.EventTypeCashBatchSubmitted,
		billing.EventTypeCashBatchApproved,
	}
}

var _ shared.EventHandler = (*BillingMetrics)(nil)
