package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCashBatchRepository implements billing.CashBatchRepository using GORM
type GormCashBatchRepository struct {
	db *gorm.DB
}

// NewGormCashBatchRepository creates a new GormCashBatchRepository
func NewGormCashBatchRepository(db *gorm.DB) *GormCashBatchRepository {
	return &GormCashBatchRepository{db: db}
}

func collectorDay(period billing.Period, day billing.Day, collector string, status billing.BatchStatus) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("period = ? AND batch_date = ? AND collector = ? AND status = ?",
			period.String(), day.String(), collector, status.String())
	}
}

// FindByID finds a batch by its ID
func (r *GormCashBatchRepository) FindByID(ctx context.Context, id int64) (*billing.CashBatch, error) {
	var model models.CashBatchModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrBatchNotFound
		}
		return nil, fmt.Errorf("find cash batch: %w", err)
	}
	return model.ToDomain(), nil
}

// FindForCollectorDay returns the collector's batch in status for the day, or nil
func (r *GormCashBatchRepository) FindForCollectorDay(ctx context.Context, period billing.Period, day billing.Day, collector string, status billing.BatchStatus) (*billing.CashBatch, error) {
	var rows []models.CashBatchModel
	if err := conn(ctx, r.db).
		Scopes(collectorDay(period, day, collector, status)).
		Order("id").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find collector batch: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ToDomain(), nil
}

// ExistsForCollectorDay reports whether the collector has a batch in status for the day
func (r *GormCashBatchRepository) ExistsForCollectorDay(ctx context.Context, period billing.Period, day billing.Day, collector string, status billing.BatchStatus) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).
		Model(&models.CashBatchModel{}).
		Scopes(collectorDay(period, day, collector, status)).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check collector batch: %w", err)
	}
	return count > 0, nil
}

// Create inserts a PENDING batch and assigns its ID.
// A second PENDING batch for the same collector-day violates the unique index.
func (r *GormCashBatchRepository) Create(ctx context.Context, batch *billing.CashBatch) error {
	model := &models.CashBatchModel{}
	model.FromDomain(batch)
	if err := conn(ctx, r.db).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return billing.ErrConcurrentSubmission
		}
		return fmt.Errorf("create cash batch: %w", err)
	}
	batch.ID = model.ID
	return nil
}

// Claim touches a PENDING batch so concurrent submitters serialize on its row
func (r *GormCashBatchRepository) Claim(ctx context.Context, id int64, at time.Time) (bool, error) {
	result := conn(ctx, r.db).
		Model(&models.CashBatchModel{}).
		Where("id = ? AND status = ?", id, billing.BatchStatusPending.String()).
		Update("updated_at", at.UTC())
	if result.Error != nil {
		return false, fmt.Errorf("claim cash batch %d: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// UpdateTotals stores a recomputed tally on a PENDING batch
func (r *GormCashBatchRepository) UpdateTotals(ctx context.Context, id int64, tally billing.CashTally, at time.Time) (bool, error) {
	result := conn(ctx, r.db).
		Model(&models.CashBatchModel{}).
		Where("id = ? AND status = ?", id, billing.BatchStatusPending.String()).
		Updates(map[string]any{
			"count":      tally.Count,
			"total_cash": tally.Total,
			"updated_at": at.UTC(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("update cash batch %d totals: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Approve moves a PENDING batch in period to APPROVED
func (r *GormCashBatchRepository) Approve(ctx context.Context, id int64, period billing.Period, admin string, at time.Time) (bool, error) {
	result := conn(ctx, r.db).
		Model(&models.CashBatchModel{}).
		Where("id = ? AND period = ? AND status = ?", id, period.String(), billing.BatchStatusPending.String()).
		Updates(map[string]any{
			"status":      billing.BatchStatusApproved.String(),
			"approved_by": admin,
			"approved_at": at.UTC(),
			"updated_at":  at.UTC(),
		})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return false, billing.ErrConcurrentSubmission
		}
		return false, fmt.Errorf("approve cash batch %d: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ListByStatus lists a period's batches in status, ordered by batch date then ID
func (r *GormCashBatchRepository) ListByStatus(ctx context.Context, period billing.Period, status billing.BatchStatus) ([]billing.CashBatch, error) {
	var rows []models.CashBatchModel
	if err := conn(ctx, r.db).
		Where("period = ? AND status = ?", period.String(), status.String()).
		Order("batch_date").
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list cash batches: %w", err)
	}

	batches := make([]billing.CashBatch, len(rows))
	for i := range rows {
		batches[i] = *rows[i].ToDomain()
	}
	return batches, nil
}

var _ billing.CashBatchRepository = (*GormCashBatchRepository)(nil)
