package models

import "github.com/google/uuid"

const (
	ResultStatusMatched      = "Matched"
	ResultStatusPartialMatch = "Partial Match"
	ResultStatusUnmatched    = "Unmatched"
	ResultStatusDuplicate    = "Duplicate"
)

// ValidResultStatus reports whether s is one of the four result statuses.
func ValidResultStatus(s string) bool {
	switch s {
	case ResultStatusMatched, ResultStatusPartialMatch, ResultStatusUnmatched, ResultStatusDuplicate:
		return true
	}
	return false
}

// ReconciliationResult is one classified row of an upload. Seq preserves the
// position of the row in the uploaded file so readers see file order.
type ReconciliationResult struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobID          uuid.UUID `gorm:"index" json:"jobId"`
	Seq            int       `gorm:"index" json:"seq"`
	UploadedID     string    `json:"uploadedId"`
	UploadedAmount float64   `json:"uploadedAmount"`
	SystemID       *string   `json:"systemId"`
	SystemAmount   *float64  `json:"systemAmount"`
	Variance       float64   `json:"variance"`
	Status         string    `gorm:"index" json:"status"`
	IsResolved     bool      `json:"isResolved"`
}
