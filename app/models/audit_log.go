package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog rows are written by the CRUD layer; the automation subsystem only
// reads them for the get_audit_state RPC.
type AuditLog struct {
	ID           string         `gorm:"type:char(36);primaryKey" json:"id"`
	UserID       string         `gorm:"type:char(36);index;not null" json:"user_id"`
	Action       string         `gorm:"type:varchar(100);not null" json:"action"`
	ResourceType string         `gorm:"type:varchar(50);not null" json:"resource_type"`
	ResourceID   string         `gorm:"type:char(36)" json:"resource_id"`
	OldValue     datatypes.JSON `gorm:"type:json" json:"old_value"`
	NewValue     datatypes.JSON `gorm:"type:json" json:"new_value"`
	Metadata     datatypes.JSON `gorm:"type:json" json:"metadata"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
