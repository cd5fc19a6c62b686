package models

import (
	"time"

	"github.com/google/uuid"
)

const SystemRecordStatusSettled = "Settled"

// SystemRecord is one entry of the authoritative ledger. The whole table is
// replaced (never merged) by the admin system-upload operation.
type SystemRecord struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID   string    `gorm:"uniqueIndex" json:"transactionId"`
	Amount          float64   `json:"amount"`
	Date            time.Time `json:"date"`
	ReferenceNumber string    `gorm:"index" json:"referenceNumber"`
	Status          string    `json:"status"`
}
