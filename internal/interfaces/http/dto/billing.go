package dto

import "github.com/netcollect/backend/internal/domain/billing"

// PeriodURI binds the :period path segment
type PeriodURI struct {
	Period string `uri:"period" binding:"required,period"`
}

// BillingPeriod returns the bound period
func (u PeriodURI) BillingPeriod() billing.Period {
	return billing.Period(u.Period)
}

// PeriodIDURI binds :period and a numeric :id
type PeriodIDURI struct {
	Period string `uri:"period" binding:"required,period"`
	ID     int64  `uri:"id" binding:"required,min=1"`
}

// IDURI binds a numeric :id
type IDURI struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// PeriodDateURI binds :period and :date
type PeriodDateURI struct {
	Period string `uri:"period" binding:"required,period"`
	Date   string `uri:"date" binding:"required,day"`
}

// UnpaidQuery filters the unpaid listing by customer name
type UnpaidQuery struct {
	Q string `form:"q" binding:"max=100"`
}

// PayRequest marks one customer's invoice paid
type PayRequest struct {
	CustomerID string `json:"customer_id" binding:"required,max=32"`
	Method     string `json:"method" binding:"required,method"`
}

// SubmitBatchRequest hands in the day's cash. BatchDate defaults to today.
type SubmitBatchRequest struct {
	BatchDate string `json:"batch_date" binding:"omitempty,day"`
}

// RosterSyncRequest carries the names currently active on the router
type RosterSyncRequest struct {
	ActiveNames []string `json:"active_names" binding:"required,min=1,max=5000,dive,max=100"`
}

// AuditQuery filters the audit trail
type AuditQuery struct {
	Entity string `form:"entity" binding:"omitempty,oneof=Invoice CashBatch Period Roster"`
	ID     string `form:"id" binding:"max=64"`
	Period string `form:"period" binding:"omitempty,period"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// Filter converts the query to a repository filter
func (q AuditQuery) Filter() billing.AuditFilter {
	return billing.AuditFilter{
		AggregateType: q.Entity,
		AggregateID:   q.ID,
		Period:        billing.Period(q.Period),
		Limit:         q.Limit,
	}
}

// EnsurePeriodResponse reports how many invoices were materialized
type EnsurePeriodResponse struct {
	Period  billing.Period `json:"period"`
	Created int64          `json:"created"`
}

// HealthResponse is the body of /healthz and /ready
type HealthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service,omitempty"`
	Database string `json:"database,omitempty"`
}
