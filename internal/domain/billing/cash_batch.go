package billing

import (
	"strings"
	"time"
)

// BatchStatus represents the approval status of a cash batch
type BatchStatus string

const (
	BatchStatusPending  BatchStatus = "PENDING"
	BatchStatusApproved BatchStatus = "APPROVED" // terminal
)

// IsValid checks if the status is a valid BatchStatus
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusPending, BatchStatusApproved:
		return true
	}
	return false
}

// String returns the string representation of BatchStatus
func (s BatchStatus) String() string {
	return string(s)
}

// CashBatch bundles one collector's cash invoices for one day.
// Count and TotalCash are recomputed from the attached invoices on every submit.
type CashBatch struct {
	ID         int64       `json:"id"`
	Period     Period      `json:"period"`
	BatchDate  Day         `json:"batch_date"`
	Collector  string      `json:"collector"`
	Count      int64       `json:"count"`
	TotalCash  int64       `json:"total_cash"`
	Status     BatchStatus `json:"status"`
	ApprovedBy string      `json:"approved_by,omitempty"`
	ApprovedAt *time.Time  `json:"approved_at,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// NewCashBatch creates a PENDING batch carrying the given tally
func NewCashBatch(period Period, day Day, collector string, tally CashTally, at time.Time) (*CashBatch, error) {
	collector = strings.TrimSpace(collector)
	if collector == "" {
		return nil, ErrCollectorRequired
	}
	if tally.Count <= 0 {
		return nil, ErrNothingToSubmit
	}
	return &CashBatch{
		Period:    period,
		BatchDate: day,
		Collector: collector,
		Count:     tally.Count,
		TotalCash: tally.Total,
		Status:    BatchStatusPending,
		CreatedAt: at,
		UpdatedAt: at,
	}, nil
}

// IsApproved returns true if the batch is APPROVED
func (b *CashBatch) IsApproved() bool {
	return b.Status == BatchStatusApproved
}

// CanAcceptInvoices returns nil while invoices may still be folded in
func (b *CashBatch) CanAcceptInvoices() error {
	if b.Status != BatchStatusPending {
		return ErrBatchNotPending
	}
	return nil
}

// Approve stamps the batch as approved in memory
func (b *CashBatch) Approve(admin string, at time.Time) error {
	admin = strings.TrimSpace(admin)
	if admin == "" {
		return ErrAdminRequired
	}
	if b.Status != BatchStatusPending {
		return ErrBatchNotPending
	}
	b.Status = BatchStatusApproved
	b.ApprovedBy = admin
	b.ApprovedAt = &at
	b.UpdatedAt = at
	return nil
}

// SubmitRequest names the collector-day a submission covers
type SubmitRequest struct {
	Period    Period
	Collector string
	BatchDate Day
}

// Validate checks the submit request
func (r SubmitRequest) Validate() error {
	if _, err := ParsePeriod(string(r.Period)); err != nil {
		return err
	}
	if _, err := ParseDay(string(r.BatchDate)); err != nil {
		return err
	}
	if strings.TrimSpace(r.Collector) == "" {
		return ErrCollectorRequired
	}
	return nil
}

// SubmitResult describes the batch after a submission
type SubmitResult struct {
	Batch           *CashBatch `json:"batch"`
	Created         bool       `json:"created"`
	Attached        int64      `json:"attached"`
	TransfersLocked int64      `json:"transfers_locked"`
}
