package billing

import (
	"context"
	"time"
)

// TxManager runs fn inside a single storage transaction.
// Repositories called with the ctx passed to fn join that transaction.
// Any error returned by fn rolls the whole transaction back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CustomerRepository is the customer registry
type CustomerRepository interface {
	// ListActive returns active customers ordered by ID
	ListActive(ctx context.Context) ([]Customer, error)
	// GetFee returns a customer's current monthly fee
	GetFee(ctx context.Context, customerID string) (int64, error)
	FindByID(ctx context.Context, customerID string) (*Customer, error)
	Create(ctx context.Context, customer *Customer) error

	// Roster sync primitives
	DeactivateAll(ctx context.Context) (int64, error)
	ActivateByNames(ctx context.Context, names []string) (int64, error)
	ExistingNames(ctx context.Context, names []string) (map[string]string, error)
	NextNumericID(ctx context.Context) (int64, error)
}

// InvoiceRepository is the invoice ledger.
// The mutating methods are predicate-qualified updates: they return false
// when no row matched, which callers report as a precondition not met.
type InvoiceRepository interface {
	// CreateMissing inserts invoices, ignoring any (period, customer) that already exists
	CreateMissing(ctx context.Context, invoices []*Invoice) (int64, error)
	FindByID(ctx context.Context, id int64) (*Invoice, error)
	FindByPeriodAndCustomer(ctx context.Context, period Period, customerID string) (*Invoice, error)

	// MarkPaid moves an UNPAID, unlocked invoice to PAID unless the collector's
	// day is already closed by an approved batch
	MarkPaid(ctx context.Context, period Period, customerID string, p Payment, day Day) (bool, error)
	// Undo resets a same-day, unlocked, unbatched payment
	Undo(ctx context.Context, id int64, period Period, today DayWindow) (bool, error)

	// TallyUnbatchedCash counts a collector's unverified, unbatched cash paid in the window
	TallyUnbatchedCash(ctx context.Context, period Period, collector string, window DayWindow) (CashTally, error)
	// AttachUnbatchedCash folds that same invoice set into a batch and locks it
	AttachUnbatchedCash(ctx context.Context, batchID int64, period Period, collector string, window DayWindow) (int64, error)
	// LockTransfers locks a collector's unlocked transfers paid in the window
	LockTransfers(ctx context.Context, period Period, collector string, window DayWindow) (int64, error)
	// TallyBatchMembers sums the invoices currently attached to a batch
	TallyBatchMembers(ctx context.Context, batchID int64) (CashTally, error)
	// VerifyBatchMembers marks a batch's paid cash invoices verified and locked
	VerifyBatchMembers(ctx context.Context, batchID int64) (int64, error)
}

// CashBatchRepository stores cash batches
type CashBatchRepository interface {
	FindByID(ctx context.Context, id int64) (*CashBatch, error)
	// FindForCollectorDay returns the batch in the given status, or nil if none exists
	FindForCollectorDay(ctx context.Context, period Period, day Day, collector string, status BatchStatus) (*CashBatch, error)
	ExistsForCollectorDay(ctx context.Context, period Period, day Day, collector string, status BatchStatus) (bool, error)
	// Create inserts a PENDING batch and assigns its ID
	Create(ctx context.Context, batch *CashBatch) error
	// Claim takes the write lock on a PENDING batch row; false if it is no longer pending
	Claim(ctx context.Context, id int64, at time.Time) (bool, error)
	// UpdateTotals stores a recomputed tally on a PENDING batch
	UpdateTotals(ctx context.Context, id int64, tally CashTally, at time.Time) (bool, error)
	// Approve moves a PENDING batch in period to APPROVED
	Approve(ctx context.Context, id int64, period Period, admin string, at time.Time) (bool, error)
	ListByStatus(ctx context.Context, period Period, status BatchStatus) ([]CashBatch, error)
}

// ReportRepository answers the read-only queries
type ReportRepository interface {
	// ListUnpaid lists UNPAID invoices of active customers, optionally filtered
	// by a case-insensitive match on customer ID or name, ordered by customer ID
	ListUnpaid(ctx context.Context, period Period, search string) ([]UnpaidLine, error)
	// ListPaidByCollector lists invoices a collector marked paid in the window, newest first
	ListPaidByCollector(ctx context.Context, period Period, collector string, window DayWindow) ([]PaidLine, error)
	Summary(ctx context.Context, period Period) (*PeriodSummary, error)
	ApprovedTotalsByDate(ctx context.Context, period Period) ([]DailyApprovedTotal, error)
	BatchLines(ctx context.Context, batchID int64) ([]BatchLine, error)
	// DateLines lists transfers and verified cash paid in the window
	DateLines(ctx context.Context, period Period, window DayWindow) ([]DateLine, error)
	Receipt(ctx context.Context, invoiceID int64) (*Receipt, error)
}

// AuditRepository persists domain events as the audit trail
type AuditRepository interface {
	Record(ctx context.Context, events ...AuditedEvent) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}
