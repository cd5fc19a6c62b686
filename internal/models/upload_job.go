package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusProcessing = "Processing"
	JobStatusCompleted  = "Completed"
	JobStatusFailed     = "Failed"
)

// UploadJob tracks one upload attempt. Processing is the initial state;
// Completed and Failed are terminal.
type UploadJob struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UploadedBy   string    `gorm:"index" json:"uploadedBy"`
	FileName     string    `gorm:"index" json:"fileName"`
	Status       string    `gorm:"index" json:"status"`
	TotalRecords int       `json:"totalRecords"`
	MatchedCount int       `json:"matchedCount"`
	CreatedAt    time.Time `json:"createdAt"`
}
