package postgresadapter

import (
	"time"

	"kasir/contexts/back-office/event-store/ports"
)

type auditLogModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	TenantID   string    `gorm:"column:tenant_id;index"`
	Action     string    `gorm:"column:action;index"`
	EntityType string    `gorm:"column:entity_type"`
	EntityID   string    `gorm:"column:entity_id;index"`
	Version    *int64    `gorm:"column:version"`
	OldValue   []byte    `gorm:"column:old_value;type:jsonb"`
	NewValue   []byte    `gorm:"column:new_value;type:jsonb"`
	Metadata   []byte    `gorm:"column:metadata;type:jsonb"`
	CreatedAt  time.Time `gorm:"column:created_at;index"`
}

func (auditLogModel) TableName() string {
	return "audit_logs"
}

func modelFromRecord(record ports.JournalRecord) auditLogModel {
	row := auditLogModel{
		ID:         record.ID,
		TenantID:   record.TenantID,
		Action:     record.Action,
		EntityType: record.EntityType,
		EntityID:   record.EntityID,
		OldValue:   record.OldValue,
		NewValue:   record.NewValue,
		Metadata:   record.Metadata,
		CreatedAt:  record.CreatedAt,
	}
	if record.Version > 0 {
		version := record.Version
		row.Version = &version
	}
	return row
}

func recordFromModel(row auditLogModel) ports.JournalRecord {
	record := ports.JournalRecord{
		ID:         row.ID,
		TenantID:   row.TenantID,
		Action:     row.Action,
		EntityType: row.EntityType,
		EntityID:   row.EntityID,
		OldValue:   row.OldValue,
		NewValue:   row.NewValue,
		Metadata:   row.Metadata,
		CreatedAt:  row.CreatedAt,
	}
	if row.Version != nil {
		record.Version = *row.Version
	}
	return record
}
