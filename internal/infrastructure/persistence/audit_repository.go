package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

// GormAuditRepository implements billing.AuditRepository using GORM.
// Record joins the caller's transaction, so an entry exists exactly when
// the change it describes was committed.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Record appends events to the audit trail
func (r *GormAuditRepository) Record(ctx context.Context, events ...billing.AuditedEvent) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([]*models.AuditEntryModel, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("serialize %s event: %w", e.EventType(), err)
		}
		rows = append(rows, models.AuditEntryModelFromEvent(e, payload))
	}

	if err := conn(ctx, r.db).Create(&rows).Error; err != nil {
		return fmt.Errorf("record audit entries: %w", err)
	}
	return nil
}

// List returns audit entries matching filter, newest first
func (r *GormAuditRepository) List(ctx context.Context, filter billing.AuditFilter) ([]billing.AuditEntry, error) {
	query := conn(ctx, r.db).Model(&models.AuditEntryModel{})
	if filter.AggregateType != "" {
		query = query.Where("aggregate_type = ?", filter.AggregateType)
	}
	if filter.AggregateID != "" {
		query = query.Where("aggregate_id = ?", filter.AggregateID)
	}
	if filter.Period != "" {
		query = query.Where("period = ?", filter.Period.String())
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	var rows []models.AuditEntryModel
	if err := query.Order("occurred_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}

	entries := make([]billing.AuditEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

var _ billing.AuditRepository = (*GormAuditRepository)(nil)
