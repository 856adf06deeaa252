package billing

import "time"

// CashTally is a count of invoices and the sum of their amounts
type CashTally struct {
	Count int64 `json:"count"`
	Total int64 `json:"total"`
}

// Add returns the sum of two tallies
func (t CashTally) Add(o CashTally) CashTally {
	return CashTally{Count: t.Count + o.Count, Total: t.Total + o.Total}
}

// UnpaidLine is one row of the collector's unpaid list
type UnpaidLine struct {
	InvoiceID  int64  `json:"invoice_id"`
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	Amount     int64  `json:"amount"`
}

// PaidLine is an invoice a collector marked paid
type PaidLine struct {
	InvoiceID   int64         `json:"invoice_id"`
	CustomerID  string        `json:"customer_id"`
	Name        string        `json:"name"`
	Amount      int64         `json:"amount"`
	Method      PaymentMethod `json:"method"`
	PaidAt      time.Time     `json:"paid_at"`
	CashBatchID *int64        `json:"cash_batch_id,omitempty"`
	Locked      bool          `json:"locked"`
	CanUndo     bool          `json:"can_undo"`
}

// Invoice rebuilds the invoice fields that decide whether the line can be undone
func (l PaidLine) Invoice() *Invoice {
	paidAt := l.PaidAt
	return &Invoice{
		ID:          l.InvoiceID,
		CustomerID:  l.CustomerID,
		Amount:      l.Amount,
		Status:      InvoiceStatusPaid,
		Method:      l.Method,
		PaidAt:      &paidAt,
		CashBatchID: l.CashBatchID,
		Locked:      l.Locked,
	}
}

// CollectorDay is everything a collector's screen needs for one day
type CollectorDay struct {
	Period             Period     `json:"period"`
	Day                Day        `json:"day"`
	Collector          string     `json:"collector"`
	Paid               []PaidLine `json:"paid"`
	CashPending        CashTally  `json:"cash_pending"`
	PendingBatch       *CashBatch `json:"pending_batch,omitempty"`
	ApprovedBatch      *CashBatch `json:"approved_batch,omitempty"`
	DayClosed          bool       `json:"day_closed"`
	TransferWindowOpen bool       `json:"transfer_window_open"`
}

// PeriodSummary aggregates a period's invoices by status and method
type PeriodSummary struct {
	Period       Period    `json:"period"`
	Unpaid       CashTally `json:"unpaid"`
	VerifiedCash CashTally `json:"verified_cash"`
	PendingCash  CashTally `json:"pending_cash"`
	Transfer     CashTally `json:"transfer"`
	// Paid is verified cash plus transfers
	Paid CashTally `json:"paid"`
}

// DailyApprovedTotal groups approved batches by batch date
type DailyApprovedTotal struct {
	BatchDate Day   `json:"batch_date"`
	Batches   int64 `json:"batches"`
	Count     int64 `json:"count"`
	Total     int64 `json:"total"`
}

// BatchLine is one invoice attached to a batch
type BatchLine struct {
	InvoiceID  int64     `json:"invoice_id"`
	CustomerID string    `json:"customer_id"`
	Name       string    `json:"name"`
	Amount     int64     `json:"amount"`
	PaidAt     time.Time `json:"paid_at"`
}

// BatchDetail is a batch with its member invoices, ordered by payment time
type BatchDetail struct {
	Batch *CashBatch  `json:"batch"`
	Lines []BatchLine `json:"lines"`
}

// DateLine is one reconciled payment on a given day
type DateLine struct {
	InvoiceID  int64         `json:"invoice_id"`
	CustomerID string        `json:"customer_id"`
	Name       string        `json:"name"`
	Method     PaymentMethod `json:"method"`
	Amount     int64         `json:"amount"`
	PaidAt     time.Time     `json:"paid_at"`
	BatchID    *int64        `json:"batch_id,omitempty"`
	Collector  string        `json:"collector"`
}

// DateDetail lists transfers and verified cash paid on a day, with subtotals
type DateDetail struct {
	Period   Period     `json:"period"`
	Date     Day        `json:"date"`
	Lines    []DateLine `json:"lines"`
	Cash     CashTally  `json:"cash"`
	Transfer CashTally  `json:"transfer"`
	Total    CashTally  `json:"total"`
}

// NewDateDetail computes the subtotals for lines
func NewDateDetail(period Period, day Day, lines []DateLine) *DateDetail {
	d := &DateDetail{Period: period, Date: day, Lines: lines}
	for _, l := range lines {
		t := CashTally{Count: 1, Total: l.Amount}
		if l.Method == PaymentMethodCash {
			d.Cash = d.Cash.Add(t)
		} else {
			d.Transfer = d.Transfer.Add(t)
		}
	}
	d.Total = d.Cash.Add(d.Transfer)
	return d
}

// Receipt is an invoice together with its customer
type Receipt struct {
	Invoice  *Invoice  `json:"invoice"`
	Customer *Customer `json:"customer"`
}

// AuditEntry is one persisted domain event
type AuditEntry struct {
	ID            string    `json:"id"`
	EventType     string    `json:"event_type"`
	AggregateType string    `json:"aggregate_type"`
	AggregateID   string    `json:"aggregate_id"`
	Period        Period    `json:"period,omitempty"`
	Actor         string    `json:"actor"`
	Payload       string    `json:"payload"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// AuditFilter narrows an audit trail query
type AuditFilter struct {
	AggregateType string
	AggregateID   string
	Period        Period
	Limit         int
}

// PeriodExport is everything written to a period workbook
type PeriodExport struct {
	Period         Period               `json:"period"`
	GeneratedAt    time.Time            `json:"generated_at"`
	Summary        *PeriodSummary       `json:"summary"`
	Unpaid         []UnpaidLine         `json:"unpaid"`
	Batches        []CashBatch          `json:"batches"`
	ApprovedTotals []DailyApprovedTotal `json:"approved_totals"`
}
