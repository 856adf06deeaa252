package billing

import (
	"strings"
	"time"

	"github.com/netcollect/backend/internal/domain/shared"
)

// InvoiceStatus represents the payment status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusUnpaid InvoiceStatus = "UNPAID"
	InvoiceStatusPaid   InvoiceStatus = "PAID"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusUnpaid, InvoiceStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// PaymentMethod represents how an invoice was paid
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
)

// ParsePaymentMethod accepts a method name in any case
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", ErrInvalidMethod
	}
	return m, nil
}

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodTransfer:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Invoice is the bill for one customer in one period.
// Method, PaidAt and Collector are empty exactly when Status is UNPAID.
type Invoice struct {
	ID           int64         `json:"id"`
	Period       Period        `json:"period"`
	CustomerID   string        `json:"customer_id"`
	Amount       int64         `json:"amount"`
	Status       InvoiceStatus `json:"status"`
	Method       PaymentMethod `json:"method,omitempty"`
	PaidAt       *time.Time    `json:"paid_at,omitempty"`
	Collector    string        `json:"collector,omitempty"`
	CashVerified bool          `json:"cash_verified"`
	CashBatchID  *int64        `json:"cash_batch_id,omitempty"`
	Locked       bool          `json:"locked"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Payment carries the fields recorded when an invoice is paid
type Payment struct {
	Method    PaymentMethod
	Collector string
	PaidAt    time.Time
}

// NewPayment validates the inputs of a pay request
func NewPayment(method PaymentMethod, collector string, at time.Time) (Payment, error) {
	if !method.IsValid() {
		return Payment{}, ErrInvalidMethod
	}
	collector = strings.TrimSpace(collector)
	if collector == "" {
		return Payment{}, ErrCollectorRequired
	}
	return Payment{Method: method, Collector: collector, PaidAt: at}, nil
}

// VerifiedOnPay reports whether the payment needs no cash reconciliation
func (p Payment) VerifiedOnPay() bool {
	return p.Method == PaymentMethodTransfer
}

// IsPaid returns true if the invoice is PAID
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

// IsBatched returns true if the invoice has been folded into a cash batch
func (i *Invoice) IsBatched() bool {
	return i.CashBatchID != nil
}

// CanPay returns nil if pay is allowed, otherwise the reason it is not
func (i *Invoice) CanPay() error {
	if i.Locked {
		return ErrInvoiceLocked
	}
	if i.Status != InvoiceStatusUnpaid {
		return ErrInvoiceAlreadyPaid
	}
	return nil
}

// MarkPaid applies a payment in memory
func (i *Invoice) MarkPaid(p Payment) error {
	if err := i.CanPay(); err != nil {
		return err
	}
	at := p.PaidAt
	i.Status = InvoiceStatusPaid
	i.Method = p.Method
	i.PaidAt = &at
	i.Collector = p.Collector
	i.CashVerified = p.VerifiedOnPay()
	i.CashBatchID = nil
	i.Locked = false
	return nil
}

// UndoBlocker returns nil if the payment may be undone at now, otherwise the
// reason it may not. The undo window is the local calendar day of payment.
func (i *Invoice) UndoBlocker(now time.Time, loc *time.Location) error {
	if i.Status != InvoiceStatusPaid {
		return ErrInvoiceNotPaid
	}
	if i.Locked {
		return ErrInvoiceLocked
	}
	if i.Method == PaymentMethodCash && i.CashBatchID != nil {
		return ErrInvoiceBatched
	}
	if i.Method != PaymentMethodCash && i.Method != PaymentMethodTransfer {
		return ErrInvalidMethod
	}
	if i.PaidAt == nil || !DayOf(now, loc).Window(loc).Contains(*i.PaidAt) {
		return ErrUndoWindowClosed
	}
	return nil
}

// CanUndo reports whether UndoBlocker returns nil
func (i *Invoice) CanUndo(now time.Time, loc *time.Location) bool {
	return i.UndoBlocker(now, loc) == nil
}

// Undo resets the invoice to its unpaid shape
func (i *Invoice) Undo(now time.Time, loc *time.Location) error {
	if err := i.UndoBlocker(now, loc); err != nil {
		return err
	}
	i.resetPayment()
	return nil
}

func (i *Invoice) resetPayment() {
	i.Status = InvoiceStatusUnpaid
	i.Method = ""
	i.PaidAt = nil
	i.Collector = ""
	i.CashVerified = false
	i.CashBatchID = nil
	i.Locked = false
}

// CheckShape verifies the field invariants tying status to the payment fields
func (i *Invoice) CheckShape() error {
	if i.Amount < 0 || !i.Status.IsValid() {
		return shared.ErrInvalidState
	}
	switch i.Status {
	case InvoiceStatusUnpaid:
		if i.Method != "" || i.PaidAt != nil || i.Collector != "" || i.CashBatchID != nil {
			return shared.ErrInvalidState
		}
	case InvoiceStatusPaid:
		if !i.Method.IsValid() || i.PaidAt == nil || i.Collector == "" {
			return shared.ErrInvalidState
		}
		if i.CashBatchID != nil && i.Method != PaymentMethodCash {
			return shared.ErrInvalidState
		}
	}
	return nil
}
