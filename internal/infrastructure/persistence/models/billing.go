package models

import (
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
)

// CustomerModel is the persistence model for the customer registry
type CustomerModel struct {
	ID         string `gorm:"type:varchar(32);primaryKey"`
	Name       string `gorm:"type:varchar(200);not null;uniqueIndex:idx_customers_name"`
	Address    string `gorm:"type:varchar(255);not null"`
	MonthlyFee int64  `gorm:"not null"`
	Active     bool   `gorm:"not null;index:idx_customers_active"`
	Timestamps
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer
func (m *CustomerModel) ToDomain() *billing.Customer {
	return &billing.Customer{
		ID:         m.ID,
		Name:       m.Name,
		Address:    m.Address,
		MonthlyFee: m.MonthlyFee,
		Active:     m.Active,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Customer
func (m *CustomerModel) FromDomain(c *billing.Customer) {
	m.ID = c.ID
	m.Name = c.Name
	m.Address = c.Address
	m.MonthlyFee = c.MonthlyFee
	m.Active = c.Active
	m.CreatedAt = c.CreatedAt.UTC()
	m.UpdatedAt = c.UpdatedAt.UTC()
}

// InvoiceModel is the persistence model for a period invoice
type InvoiceModel struct {
	ID           int64      `gorm:"primaryKey;autoIncrement"`
	Period       string     `gorm:"type:varchar(7);not null;uniqueIndex:uq_invoices_period_customer,priority:1"`
	CustomerID   string     `gorm:"type:varchar(32);not null;uniqueIndex:uq_invoices_period_customer,priority:2"`
	Amount       int64      `gorm:"not null"`
	Status       string     `gorm:"type:varchar(16);not null"`
	Method       *string    `gorm:"type:varchar(16)"`
	PaidAt       *time.Time `gorm:"index:idx_invoices_paid_at"`
	Collector    *string    `gorm:"type:varchar(100)"`
	CashVerified bool       `gorm:"not null"`
	CashBatchID  *int64     `gorm:"index:idx_invoices_cash_batch"`
	Locked       bool       `gorm:"not null"`
	Timestamps
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	return &billing.Invoice{
		ID:           m.ID,
		Period:       billing.Period(m.Period),
		CustomerID:   m.CustomerID,
		Amount:       m.Amount,
		Status:       billing.InvoiceStatus(m.Status),
		Method:       billing.PaymentMethod(derefString(m.Method)),
		PaidAt:       m.PaidAt,
		Collector:    derefString(m.Collector),
		CashVerified: m.CashVerified,
		CashBatchID:  m.CashBatchID,
		Locked:       m.Locked,
		CreatedAt:    m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(i *billing.Invoice) {
	m.ID = i.ID
	m.Period = i.Period.String()
	m.CustomerID = i.CustomerID
	m.Amount = i.Amount
	m.Status = i.Status.String()
	m.Method = nullableString(i.Method.String())
	m.PaidAt = utcPtr(i.PaidAt)
	m.Collector = nullableString(i.Collector)
	m.CashVerified = i.CashVerified
	m.CashBatchID = i.CashBatchID
	m.Locked = i.Locked
	m.CreatedAt = i.CreatedAt.UTC()
	m.UpdatedAt = i.CreatedAt.UTC()
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(i *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(i)
	return m
}

// CashBatchModel is the persistence model for a collector's daily cash batch
type CashBatchModel struct {
	ID         int64      `gorm:"primaryKey;autoIncrement"`
	Period     string     `gorm:"type:varchar(7);not null"`
	BatchDate  string     `gorm:"type:varchar(10);not null"`
	Collector  string     `gorm:"type:varchar(100);not null"`
	Count      int64      `gorm:"not null"`
	TotalCash  int64      `gorm:"not null"`
	Status     string     `gorm:"type:varchar(16);not null"`
	ApprovedBy *string    `gorm:"type:varchar(100)"`
	ApprovedAt *time.Time
	Timestamps
}

// TableName returns the table name for GORM
func (CashBatchModel) TableName() string {
	return "cash_batches"
}

// ToDomain converts the persistence model to a domain CashBatch
func (m *CashBatchModel) ToDomain() *billing.CashBatch {
	return &billing.CashBatch{
		ID:         m.ID,
		Period:     billing.Period(m.Period),
		BatchDate:  billing.Day(m.BatchDate),
		Collector:  m.Collector,
		Count:      m.Count,
		TotalCash:  m.TotalCash,
		Status:     billing.BatchStatus(m.Status),
		ApprovedBy: derefString(m.ApprovedBy),
		ApprovedAt: m.ApprovedAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain CashBatch
func (m *CashBatchModel) FromDomain(b *billing.CashBatch) {
	m.ID = b.ID
	m.Period = b.Period.String()
	m.BatchDate = b.BatchDate.String()
	m.Collector = b.Collector
	m.Count = b.Count
	m.TotalCash = b.TotalCash
	m.Status = b.Status.String()
	m.ApprovedBy = nullableString(b.ApprovedBy)
	m.ApprovedAt = utcPtr(b.ApprovedAt)
	m.CreatedAt = b.CreatedAt.UTC()
	m.UpdatedAt = b.UpdatedAt.UTC()
}
