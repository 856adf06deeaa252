package billing

import (
	"strconv"
	"time"

	"github.com/netcollect/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeInvoice   = "Invoice"
	AggregateTypeCashBatch = "CashBatch"
	AggregateTypePeriod    = "Period"
	AggregateTypeRoster    = "Roster"
)

// Event type constants
const (
	EventTypeInvoicesMaterialized = "InvoicesMaterialized"
	EventTypeInvoicePaid          = "InvoicePaid"
	EventTypePaymentUndone        = "PaymentUndone"
	EventTypeCashBatchSubmitted   = "CashBatchSubmitted"
	EventTypeCashBatchApproved    = "CashBatchApproved"
	EventTypeRosterSynced         = "RosterSynced"
)

// AuditedEvent is an event that is written to the audit trail
type AuditedEvent interface {
	shared.DomainEvent
	// Actor is the collector, admin or process that caused the event
	Actor() string
	// AffectedPeriod is the billing period whose figures changed, or "" if none
	AffectedPeriod() Period
}

// InvoicesMaterializedEvent is raised when ensure_period creates invoices
type InvoicesMaterializedEvent struct {
	shared.BaseDomainEvent
	BillingPeriod Period `json:"period"`
	Created       int64  `json:"created"`
}

// NewInvoicesMaterializedEvent creates a new InvoicesMaterializedEvent
func NewInvoicesMaterializedEvent(period Period, created int64, at time.Time) *InvoicesMaterializedEvent {
	return &InvoicesMaterializedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicesMaterialized, AggregateTypePeriod, period.String(), at),
		BillingPeriod:   period,
		Created:         created,
	}
}

func (e *InvoicesMaterializedEvent) Actor() string          { return "system" }
func (e *InvoicesMaterializedEvent) AffectedPeriod() Period { return e.BillingPeriod }

// InvoicePaidEvent is raised when a collector marks an invoice paid
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID     int64         `json:"invoice_id"`
	BillingPeriod Period        `json:"period"`
	CustomerID    string        `json:"customer_id"`
	Amount        int64         `json:"amount"`
	Method        PaymentMethod `json:"method"`
	Collector     string        `json:"collector"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice, p Payment) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, AggregateTypeInvoice, strconv.FormatInt(inv.ID, 10), p.PaidAt),
		InvoiceID:       inv.ID,
		BillingPeriod:   inv.Period,
		CustomerID:      inv.CustomerID,
		Amount:          inv.Amount,
		Method:          p.Method,
		Collector:       p.Collector,
	}
}

func (e *InvoicePaidEvent) Actor() string          { return e.Collector }
func (e *InvoicePaidEvent) AffectedPeriod() Period { return e.BillingPeriod }

// PaymentUndoneEvent is raised when a same-day payment is reverted
type PaymentUndoneEvent struct {
	shared.BaseDomainEvent
	InvoiceID     int64         `json:"invoice_id"`
	BillingPeriod Period        `json:"period"`
	CustomerID    string        `json:"customer_id"`
	Amount        int64         `json:"amount"`
	Method        PaymentMethod `json:"method"`
	Collector     string        `json:"collector"`
}

// NewPaymentUndoneEvent creates a new PaymentUndoneEvent from the invoice as it was before the undo
func NewPaymentUndoneEvent(before *Invoice, at time.Time) *PaymentUndoneEvent {
	return &PaymentUndoneEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentUndone, AggregateTypeInvoice, strconv.FormatInt(before.ID, 10), at),
		InvoiceID:       before.ID,
		BillingPeriod:   before.Period,
		CustomerID:      before.CustomerID,
		Amount:          before.Amount,
		Method:          before.Method,
		Collector:       before.Collector,
	}
}

func (e *PaymentUndoneEvent) Actor() string          { return e.Collector }
func (e *PaymentUndoneEvent) AffectedPeriod() Period { return e.BillingPeriod }

// CashBatchSubmittedEvent is raised when a batch is created or updated by a submission
type CashBatchSubmittedEvent struct {
	shared.BaseDomainEvent
	BatchID         int64  `json:"batch_id"`
	BillingPeriod   Period `json:"period"`
	BatchDate       Day    `json:"batch_date"`
	Collector       string `json:"collector"`
	Count           int64  `json:"count"`
	TotalCash       int64  `json:"total_cash"`
	Created         bool   `json:"created"`
	Attached        int64  `json:"attached"`
	TransfersLocked int64  `json:"transfers_locked"`
}

// NewCashBatchSubmittedEvent creates a new CashBatchSubmittedEvent
func NewCashBatchSubmittedEvent(res *SubmitResult, at time.Time) *CashBatchSubmittedEvent {
	b := res.Batch
	return &CashBatchSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCashBatchSubmitted, AggregateTypeCashBatch, strconv.FormatInt(b.ID, 10), at),
		BatchID:         b.ID,
		BillingPeriod:   b.Period,
		BatchDate:       b.BatchDate,
		Collector:       b.Collector,
		Count:           b.Count,
		TotalCash:       b.TotalCash,
		Created:         res.Created,
		Attached:        res.Attached,
		TransfersLocked: res.TransfersLocked,
	}
}

func (e *CashBatchSubmittedEvent) Actor() string          { return e.Collector }
func (e *CashBatchSubmittedEvent) AffectedPeriod() Period { return e.BillingPeriod }

// CashBatchApprovedEvent is raised when an admin approves a batch
type CashBatchApprovedEvent struct {
	shared.BaseDomainEvent
	BatchID       int64  `json:"batch_id"`
	BillingPeriod Period `json:"period"`
	BatchDate     Day    `json:"batch_date"`
	Collector     string `json:"collector"`
	Count         int64  `json:"count"`
	TotalCash     int64  `json:"total_cash"`
	ApprovedBy    string `json:"approved_by"`
	Verified      int64  `json:"verified"`
}

// NewCashBatchApprovedEvent creates a new CashBatchApprovedEvent
func NewCashBatchApprovedEvent(b *CashBatch, verified int64, at time.Time) *CashBatchApprovedEvent {
	return &CashBatchApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCashBatchApproved, AggregateTypeCashBatch, strconv.FormatInt(b.ID, 10), at),
		BatchID:         b.ID,
		BillingPeriod:   b.Period,
		BatchDate:       b.BatchDate,
		Collector:       b.Collector,
		Count:           b.Count,
		TotalCash:       b.TotalCash,
		ApprovedBy:      b.ApprovedBy,
		Verified:        verified,
	}
}

func (e *CashBatchApprovedEvent) Actor() string          { return e.ApprovedBy }
func (e *CashBatchApprovedEvent) AffectedPeriod() Period { return e.BillingPeriod }

// RosterSyncedEvent is raised after the active roster is applied to the registry
type RosterSyncedEvent struct {
	shared.BaseDomainEvent
	Result RosterSyncResult `json:"result"`
	Source string           `json:"source"`
}

// NewRosterSyncedEvent creates a new RosterSyncedEvent
func NewRosterSyncedEvent(res RosterSyncResult, source string, at time.Time) *RosterSyncedEvent {
	return &RosterSyncedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRosterSynced, AggregateTypeRoster, "customers", at),
		Result:          res,
		Source:          source,
	}
}

func (e *RosterSyncedEvent) Actor() string          { return e.Source }
func (e *RosterSyncedEvent) AffectedPeriod() Period { return "" }
