package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Entity    string         `json:"entity"`
	EntityID  string         `gorm:"index" json:"entityId"`
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`
	OldValue  datatypes.JSON `json:"oldValue,omitempty"`
	NewValue  datatypes.JSON `json:"newValue,omitempty"`
	Details   string         `json:"details,omitempty"`
	Timestamp time.Time      `gorm:"index" json:"timestamp"`
}
