package billing

import "github.com/netcollect/backend/internal/domain/shared"

// Validation failures
var (
	ErrInvalidPeriod     = shared.NewValidationError("INVALID_PERIOD", "Period must be formatted YYYY-MM")
	ErrInvalidDay        = shared.NewValidationError("INVALID_DAY", "Date must be formatted YYYY-MM-DD")
	ErrInvalidMethod     = shared.NewValidationError("INVALID_METHOD", "Payment method must be CASH or TRANSFER")
	ErrCollectorRequired = shared.NewValidationError("COLLECTOR_REQUIRED", "Collector name is required")
	ErrAdminRequired     = shared.NewValidationError("ADMIN_REQUIRED", "Admin name is required")
	ErrCustomerRequired  = shared.NewValidationError("CUSTOMER_REQUIRED", "Customer id is required")
	ErrInvalidInvoiceID  = shared.NewValidationError("INVALID_INVOICE_ID", "Invoice id must be positive")
	ErrInvalidBatchID    = shared.NewValidationError("INVALID_BATCH_ID", "Batch id must be positive")
	ErrNegativeFee       = shared.NewValidationError("NEGATIVE_FEE", "Monthly fee cannot be negative")
	ErrCustomerName      = shared.NewValidationError("CUSTOMER_NAME_REQUIRED", "Customer name is required")
	ErrEmptyRoster       = shared.NewValidationError("EMPTY_ROSTER", "Roster must name at least one customer")
)

// Lookups by id
var (
	ErrInvoiceNotFound  = shared.NewNotFoundError("INVOICE_NOT_FOUND", "Invoice not found")
	ErrBatchNotFound    = shared.NewNotFoundError("BATCH_NOT_FOUND", "Cash batch not found")
	ErrCustomerNotFound = shared.NewNotFoundError("CUSTOMER_NOT_FOUND", "Customer not found")
)

// Preconditions not met
var (
	ErrInvoiceAlreadyPaid = shared.NewPreconditionError("INVOICE_ALREADY_PAID", "Invoice is already paid")
	ErrInvoiceLocked      = shared.NewPreconditionError("INVOICE_LOCKED", "Invoice is locked")
	ErrInvoiceNotPaid     = shared.NewPreconditionError("INVOICE_NOT_PAID", "Invoice is not paid")
	ErrInvoiceBatched     = shared.NewPreconditionError("INVOICE_BATCHED", "Cash payment is already part of a batch")
	ErrUndoWindowClosed   = shared.NewPreconditionError("UNDO_WINDOW_CLOSED", "Payments can only be undone on the day they were recorded")
	ErrInvoiceChanged     = shared.NewPreconditionError("INVOICE_CHANGED", "Invoice was changed by another request")
	ErrDayClosed          = shared.NewPreconditionError("DAY_CLOSED", "Collector's cash for today is already approved")
	ErrNothingToSubmit    = shared.NewPreconditionError("NOTHING_TO_SUBMIT", "No unbatched cash payments for that day")
	ErrBatchNotPending    = shared.NewPreconditionError("BATCH_NOT_PENDING", "Cash batch is not pending")
)

// Races
var (
	ErrConcurrentSubmission = shared.NewConflictError("CONCURRENT_SUBMISSION", "Another submission for the same day is in progress")
)
