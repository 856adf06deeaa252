// Package billing provides the domain model for monthly subscription collection
// and cash reconciliation.
//
// The package covers:
//   - Customer: a billable subscriber and its monthly fee, owned by the registry
//   - Invoice: one per (period, customer), moved between UNPAID and PAID by collectors
//   - CashBatch: a collector's same-day cash invoices, submitted for admin approval
//
// Invoice lifecycle:
//
//	UNPAID --pay--> PAID (unlocked) --undo, same day and unbatched--> UNPAID
//	PAID (unlocked) --batch submit--> PAID (locked, terminal)
//
// Batch lifecycle:
//
//	(none) --submit, count>0--> PENDING --submit again--> PENDING --approve--> APPROVED
//
// State changes are applied by predicate-qualified updates in the persistence
// layer; the methods on the entities mirror those predicates so callers can
// explain a rejected transition.
package billing
