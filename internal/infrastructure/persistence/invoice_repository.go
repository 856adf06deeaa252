package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const invoiceInsertBatchSize = 200

// GormInvoiceRepository implements billing.InvoiceRepository using GORM.
// Every state transition is a single UPDATE whose WHERE clause carries the
// full precondition, so the row count decides the outcome.
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// paidInWindow restricts to invoices paid inside [w.Start, w.End)
func paidInWindow(w billing.DayWindow) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("paid_at >= ? AND paid_at < ?", w.Start, w.End)
	}
}

// unbatchedCash is a collector's unverified cash that no batch holds yet
func unbatchedCash(period billing.Period, collector string, w billing.DayWindow) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Where("period = ? AND status = ? AND method = ?", period.String(),
				billing.InvoiceStatusPaid.String(), billing.PaymentMethodCash.String()).
			Where("collector = ? AND cash_verified = ? AND cash_batch_id IS NULL", collector, false).
			Scopes(paidInWindow(w))
	}
}

// CreateMissing inserts invoices, skipping any (period, customer_id) already present
func (r *GormInvoiceRepository) CreateMissing(ctx context.Context, invoices []*billing.Invoice) (int64, error) {
	if len(invoices) == 0 {
		return 0, nil
	}
	rows := make([]*models.InvoiceModel, len(invoices))
	for i, inv := range invoices {
		rows[i] = models.InvoiceModelFromDomain(inv)
	}

	result := conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "period"}, {Name: "customer_id"}},
			DoNothing: true,
		}).
		CreateInBatches(rows, invoiceInsertBatchSize)
	if result.Error != nil {
		return 0, fmt.Errorf("create invoices: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id int64) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("find invoice: %w", err)
	}
	return model.ToDomain(), nil
}

// FindByPeriodAndCustomer finds the invoice of a customer in a period
func (r *GormInvoiceRepository) FindByPeriodAndCustomer(ctx context.Context, period billing.Period, customerID string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := conn(ctx, r.db).
		Where("period = ? AND customer_id = ?", period.String(), customerID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("find invoice: %w", err)
	}
	return model.ToDomain(), nil
}

// MarkPaid moves the invoice to PAID if it is still UNPAID and unlocked and
// the collector's day has no APPROVED batch.
func (r *GormInvoiceRepository) MarkPaid(ctx context.Context, period billing.Period, customerID string, p billing.Payment, day billing.Day) (bool, error) {
	result := conn(ctx, r.db).
		Model(&models.InvoiceModel{}).
		Where("period = ? AND customer_id = ? AND status = ? AND locked = ?",
			period.String(), customerID, billing.InvoiceStatusUnpaid.String(), false).
		Where(`NOT EXISTS (SELECT 1 FROM cash_batches b
			WHERE b.period = ? AND b.batch_date = ? AND b.collector = ? AND b.status = ?)`,
			period.String(), day.String(), p.Collector, billing.BatchStatusApproved.String()).
		Updates(map[string]any{
			"status":        billing.InvoiceStatusPaid.String(),
			"method":        p.Method.String(),
			"paid_at":       p.PaidAt.UTC(),
			"collector":     p.Collector,
			"cash_verified": p.VerifiedOnPay(),
			"cash_batch_id": nil,
			"locked":        false,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("mark invoice paid: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Undo resets a payment made inside today that is unlocked and, for cash, unbatched
func (r *GormInvoiceRepository) Undo(ctx context.Context, id int64, period billing.Period, today billing.DayWindow) (bool, error) {
	result := conn(ctx, r.db).
		Model(&models.InvoiceModel{}).
		Where("id = ? AND period = ? AND status = ? AND locked = ?",
			id, period.String(), billing.InvoiceStatusPaid.String(), false).
		Where("(method = ? OR (method = ? AND cash_batch_id IS NULL))",
			billing.PaymentMethodTransfer.String(), billing.PaymentMethodCash.String()).
		Scopes(paidInWindow(today)).
		Updates(map[string]any{
			"status":        billing.InvoiceStatusUnpaid.String(),
			"method":        nil,
			"paid_at":       nil,
			"collector":     nil,
			"cash_verified": false,
			"cash_batch_id": nil,
			"locked":        false,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("undo payment: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// TallyUnbatchedCash counts and sums the collector's unbatched cash in the window
func (r *GormInvoiceRepository) TallyUnbatchedCash(ctx context.Context, period billing.Period, collector string, window billing.DayWindow) (billing.CashTally, error) {
	var tally billing.CashTally
	if err := conn(ctx, r.db).
		Model(&models.InvoiceModel{}).
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Scopes(unbatchedCash(period, collector, window)).
		Scan(&tally).Error; err != nil {
		return billing.CashTally{}, fmt.Errorf("tally unbatched cash: %w", err)
	}
	return tally, nil
}

// AttachUnbatchedCash folds the collector's unbatched cash into a batch and locks it
func (r *GormInvoiceRepository) AttachUnbatchedCash(ctx context.Context, batchID int64, period billing.Period, collector string, window billing.DayWindow) (int64, error) {
	result := conn(ctx, r.db).
		Model(&models.InvoiceModel{}).
		Scopes(unbatchedCash(period, collector, window)).
		Updates(map[string]any{
			"cash_batch_id": batchID,
			"locked":        true,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("attach cash to batch %d: %w", batchID, result.Error)
	}
	return result.RowsAffected, nil
}

// LockTransfers locks the collector's unlocked transfers paid in the window
func (r *GormInvoiceRepository) LockTransfers(ctx context.Context, period billing.Period, collector string, window billing.DayWindow) (int64, error) {
	result := conn(ctx, r.db).
		Model(&models.InvoiceModel{}).
		Where("period = ? AND status = ? AND method = ? AND collector = ? AND locked = ?",
			period.String(), billing.InvoiceStatusPaid.String(),
			billing.PaymentMethodTransfer.String(), collector, false).
		Scopes(paidInWindow(window)).
		Updates(map[string]any{"locked": true, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return 0, fmt.Errorf("lock transfers: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// TallyBatchMembers counts and sums the invoices attached to a batch
func (r *GormInvoiceRepository) TallyBatchMembers(ctx context.Context, batchID int64) (billing.CashTally, error) {
	var tally billing.CashTally
	if err := conn(ctx, r.db).
		Model(&models.InvoiceModel{}).
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Where("cash_batch_id = ?", batchID).
		Scan(&tally).Error; err != nil {
		return billing.CashTally{}, fmt.Errorf("tally batch %d: %w", batchID, err)
	}
	return tally, nil
}

// VerifyBatchMembers marks the batch's paid cash invoices verified and locked
func (r *GormInvoiceRepository) VerifyBatchMembers(ctx context.Context, batchID int64) (int64, error) {
	result := conn(ctx, r.db).
		Model(&models.InvoiceModel{}).
		Where("cash_batch_id = ? AND method = ? AND status = ?",
			batchID, billing.PaymentMethodCash.String(), billing.InvoiceStatusPaid.String()).
		Updates(map[string]any{
			"cash_verified": true,
			"locked":        true,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("verify batch %d: %w", batchID, result.Error)
	}
	return result.RowsAffected, nil
}

var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
