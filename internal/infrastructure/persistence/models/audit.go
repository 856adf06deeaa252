package models

import (
	"time"

	"github.com/netcollect/backend/internal/domain/billing"
)

// AuditEntryModel is one row of the append-only audit trail.
// Payload holds the event serialized as JSON.
type AuditEntryModel struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	EventID       string    `gorm:"type:uuid;not null;uniqueIndex:idx_audit_entries_event_id"`
	EventType     string    `gorm:"type:varchar(64);not null"`
	AggregateType string    `gorm:"type:varchar(32);not null"`
	AggregateID   string    `gorm:"type:varchar(64);not null"`
	Period        string    `gorm:"type:varchar(7);not null"`
	Actor         string    `gorm:"type:varchar(100);not null"`
	Payload       string    `gorm:"type:jsonb;not null"`
	OccurredAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AuditEntryModel) TableName() string {
	return "audit_entries"
}

// ToDomain converts the persistence model to a domain AuditEntry
func (m *AuditEntryModel) ToDomain() billing.AuditEntry {
	return billing.AuditEntry{
		ID:            m.EventID,
		EventType:     m.EventType,
		AggregateType: m.AggregateType,
		AggregateID:   m.AggregateID,
		Period:        billing.Period(m.Period),
		Actor:         m.Actor,
		Payload:       m.Payload,
		OccurredAt:    m.OccurredAt,
	}
}

// AuditEntryModelFromEvent builds the row for an audited event and its JSON payload
func AuditEntryModelFromEvent(e billing.AuditedEvent, payload []byte) *AuditEntryModel {
	return &AuditEntryModel{
		EventID:       e.EventID().String(),
		EventType:     e.EventType(),
		AggregateType: e.AggregateType(),
		AggregateID:   e.AggregateID(),
		Period:        e.AffectedPeriod().String(),
		Actor:         e.Actor(),
		Payload:       string(payload),
		OccurredAt:    e.OccurredAt().UTC(),
	}
}
