package repository

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"transaction-reconciliation-backend/internal/models"
)

type ResultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// ListByJob returns a job's results in uploaded file order.
func (r *ResultRepository) ListByJob(jobID uuid.UUID) ([]models.ReconciliationResult, error) {
	var results []models.ReconciliationResult
	err := r.db.
		Where("job_id = ?", jobID).
		Order("seq ASC").
		Find(&results).Error
	return results, errors.Wrap(err, "list results")
}

func (r *ResultRepository) GetByID(id uuid.UUID) (*models.ReconciliationResult, error) {
	var res models.ReconciliationResult
	if err := r.db.First(&res, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &res, nil
}

func (r *ResultRepository) Update(res *models.ReconciliationResult) error {
	return errors.Wrap(r.db.Save(res).Error, "update result")
}
