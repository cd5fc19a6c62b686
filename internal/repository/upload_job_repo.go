package repository

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"transaction-reconciliation-backend/internal/models"
)

type UploadJobRepository struct {
	db *gorm.DB
}

func NewUploadJobRepository(db *gorm.DB) *UploadJobRepository {
	return &UploadJobRepository{db: db}
}

func (r *UploadJobRepository) DB() *gorm.DB {
	return r.db
}

func (r *UploadJobRepository) Create(job *models.UploadJob) error {
	return errors.Wrap(r.db.Create(job).Error, "create upload job")
}

func (r *UploadJobRepository) GetByID(id uuid.UUID) (*models.UploadJob, error) {
	var job models.UploadJob
	if err := r.db.First(&job, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &job, nil
}

// LatestCompletedByFileName returns the most recent Completed job for the
// exact file name, or ErrNotFound. This backs the filename idempotency cache.
func (r *UploadJobRepository) LatestCompletedByFileName(fileName string) (*models.UploadJob, error) {
	var job models.UploadJob
	err := r.db.
		Where("file_name = ? AND status = ?", fileName, models.JobStatusCompleted).
		Order("created_at DESC").
		First(&job).Error
	if err != nil {
		return nil, translate(err)
	}
	return &job, nil
}

// LatestCompleted returns the newest Completed job regardless of file name.
func (r *UploadJobRepository) LatestCompleted() (*models.UploadJob, error) {
	var job models.UploadJob
	err := r.db.
		Where("status = ?", models.JobStatusCompleted).
		Order("created_at DESC").
		First(&job).Error
	if err != nil {
		return nil, translate(err)
	}
	return &job, nil
}

func (r *UploadJobRepository) ListAll() ([]models.UploadJob, error) {
	var jobs []models.UploadJob
	err := r.db.Order("created_at DESC").Find(&jobs).Error
	return jobs, errors.Wrap(err, "list upload jobs")
}

// MarkFailed flips a Processing job to Failed. Terminal states are final, so
// the update is guarded on the current status; flipping an already-terminal
// job is a no-op.
func (r *UploadJobRepository) MarkFailed(id uuid.UUID) error {
	err := r.db.Model(&models.UploadJob{}).
		Where("id = ? AND status = ?", id, models.JobStatusProcessing).
		Update("status", models.JobStatusFailed).Error
	return errors.Wrap(err, "mark job failed")
}
