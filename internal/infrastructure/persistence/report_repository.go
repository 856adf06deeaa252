package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReportRepository implements billing.ReportRepository using GORM.
// All queries are read-only and run outside any transaction unless the
// caller's context carries one.
type GormReportRepository struct {
	db *gorm.DB
}

// NewGormReportRepository creates a new GormReportRepository
func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

// ListUnpaid lists UNPAID invoices of active customers, ordered by customer ID
func (r *GormReportRepository) ListUnpaid(ctx context.Context, period billing.Period, search string) ([]billing.UnpaidLine, error) {
	query := conn(ctx, r.db).
		Table("invoices AS i").
		Select("i.id AS invoice_id, i.customer_id, c.name, c.address, i.amount").
		Joins("JOIN customers c ON c.id = i.customer_id").
		Where("i.period = ? AND i.status = ? AND c.active = ?",
			period.String(), billing.InvoiceStatusUnpaid.String(), true)

	if search = strings.TrimSpace(search); search != "" {
		like := "%" + escapeLike(strings.ToLower(search)) + "%"
		query = query.Where(`(LOWER(c.id) LIKE ? ESCAPE '\' OR LOWER(c.name) LIKE ? ESCAPE '\')`, like, like)
	}

	lines := make([]billing.UnpaidLine, 0)
	if err := query.Order("i.customer_id").Scan(&lines).Error; err != nil {
		return nil, fmt.Errorf("list unpaid invoices: %w", err)
	}
	return lines, nil
}

// ListPaidByCollector lists what a collector marked paid in the window, newest first
func (r *GormReportRepository) ListPaidByCollector(ctx context.Context, period billing.Period, collector string, window billing.DayWindow) ([]billing.PaidLine, error) {
	lines := make([]billing.PaidLine, 0)
	if err := conn(ctx, r.db).
		Table("invoices AS i").
		Select("i.id AS invoice_id, i.customer_id, c.name, i.amount, i.method, i.paid_at, i.cash_batch_id, i.locked").
		Joins("JOIN customers c ON c.id = i.customer_id").
		Where("i.period = ? AND i.status = ? AND i.collector = ?",
			period.String(), billing.InvoiceStatusPaid.String(), collector).
		Where("i.paid_at >= ? AND i.paid_at < ?", window.Start, window.End).
		Order("i.paid_at DESC").
		Order("i.id DESC").
		Scan(&lines).Error; err != nil {
		return nil, fmt.Errorf("list paid invoices: %w", err)
	}
	return lines, nil
}

type summaryRow struct {
	Status       string
	Method       *string
	CashVerified bool
	Count        int64
	Total        int64
}

// Summary aggregates a period's invoices by status, method and verification
func (r *GormReportRepository) Summary(ctx context.Context, period billing.Period) (*billing.PeriodSummary, error) {
	var rows []summaryRow
	if err := conn(ctx, r.db).
		Model(&models.InvoiceModel{}).
		Select("status, method, cash_verified, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Where("period = ?", period.String()).
		Group("status, method, cash_verified").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("summarize period: %w", err)
	}

	s := &billing.PeriodSummary{Period: period}
	for _, row := range rows {
		t := billing.CashTally{Count: row.Count, Total: row.Total}
		switch {
		case row.Status == billing.InvoiceStatusUnpaid.String():
			s.Unpaid = s.Unpaid.Add(t)
		case derefOr(row.Method) == billing.PaymentMethodTransfer.String():
			s.Transfer = s.Transfer.Add(t)
		case row.CashVerified:
			s.VerifiedCash = s.VerifiedCash.Add(t)
		default:
			s.PendingCash = s.PendingCash.Add(t)
		}
	}
	s.Paid = s.VerifiedCash.Add(s.Transfer)
	return s, nil
}

// ApprovedTotalsByDate groups a period's APPROVED batches by batch date
func (r *GormReportRepository) ApprovedTotalsByDate(ctx context.Context, period billing.Period) ([]billing.DailyApprovedTotal, error) {
	totals := make([]billing.DailyApprovedTotal, 0)
	if err := conn(ctx, r.db).
		Model(&models.CashBatchModel{}).
		Select("batch_date, COUNT(*) AS batches, COALESCE(SUM(count), 0) AS count, COALESCE(SUM(total_cash), 0) AS total").
		Where("period = ? AND status = ?", period.String(), billing.BatchStatusApproved.String()).
		Group("batch_date").
		Order("batch_date").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("approved totals: %w", err)
	}
	return totals, nil
}

// BatchLines lists the invoices attached to a batch in payment order
func (r *GormReportRepository) BatchLines(ctx context.Context, batchID int64) ([]billing.BatchLine, error) {
	lines := make([]billing.BatchLine, 0)
	if err := conn(ctx, r.db).
		Table("invoices AS i").
		Select("i.id AS invoice_id, i.customer_id, c.name, i.amount, i.paid_at").
		Joins("JOIN customers c ON c.id = i.customer_id").
		Where("i.cash_batch_id = ?", batchID).
		Order("i.paid_at").
		Order("i.id").
		Scan(&lines).Error; err != nil {
		return nil, fmt.Errorf("batch lines: %w", err)
	}
	return lines, nil
}

// DateLines lists transfers and verified cash paid in the window.
// Transfers sort first, then cash grouped by batch, each by payment time.
func (r *GormReportRepository) DateLines(ctx context.Context, period billing.Period, window billing.DayWindow) ([]billing.DateLine, error) {
	lines := make([]billing.DateLine, 0)
	if err := conn(ctx, r.db).
		Table("invoices AS i").
		Select("i.id AS invoice_id, i.customer_id, c.name, i.method, i.amount, i.paid_at, i.cash_batch_id AS batch_id, i.collector").
		Joins("JOIN customers c ON c.id = i.customer_id").
		Where("i.period = ? AND i.status = ?", period.String(), billing.InvoiceStatusPaid.String()).
		Where("i.paid_at >= ? AND i.paid_at < ?", window.Start, window.End).
		Where("(i.method = ? OR (i.method = ? AND i.cash_verified = ?))",
			billing.PaymentMethodTransfer.String(), billing.PaymentMethodCash.String(), true).
		Order("i.method DESC").
		Order("i.cash_batch_id").
		Order("i.paid_at").
		Scan(&lines).Error; err != nil {
		return nil, fmt.Errorf("date lines: %w", err)
	}
	return lines, nil
}

// Receipt returns an invoice with its customer
func (r *GormReportRepository) Receipt(ctx context.Context, invoiceID int64) (*billing.Receipt, error) {
	var inv models.InvoiceModel
	if err := conn(ctx, r.db).First(&inv, "id = ?", invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("find invoice: %w", err)
	}

	var cust models.CustomerModel
	if err := conn(ctx, r.db).First(&cust, "id = ?", inv.CustomerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("find customer: %w", err)
	}

	return &billing.Receipt{Invoice: inv.ToDomain(), Customer: cust.ToDomain()}, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func derefOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ billing.ReportRepository = (*GormReportRepository)(nil)
