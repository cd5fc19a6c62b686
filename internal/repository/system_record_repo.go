package repository

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"transaction-reconciliation-backend/internal/models"
)

type SystemRecordRepository struct {
	db *gorm.DB
}

func NewSystemRecordRepository(db *gorm.DB) *SystemRecordRepository {
	return &SystemRecordRepository{db: db}
}

func (r *SystemRecordRepository) GetAll() ([]models.SystemRecord, error) {
	var records []models.SystemRecord
	err := r.db.Find(&records).Error
	return records, errors.Wrap(err, "load system records")
}

// ReplaceAll swaps the entire ledger in a single transaction so a concurrent
// reader never observes the table between the delete and the insert.
func (r *SystemRecordRepository) ReplaceAll(records []models.SystemRecord) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.SystemRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, 500).Error
	})
	return errors.Wrap(err, "replace system records")
}
