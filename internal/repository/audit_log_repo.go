package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"transaction-reconciliation-backend/internal/audit"
	"transaction-reconciliation-backend/internal/models"
)

// AuditLogRepository persists audit events. It satisfies audit.Sink.
type AuditLogRepository struct {
	db *gorm.DB
}

var _ audit.Sink = (*AuditLogRepository)(nil)

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Record(ctx context.Context, ev audit.Event) error {
	entry := models.AuditLog{
		ID:        uuid.New(),
		Entity:    ev.Entity,
		EntityID:  ev.EntityID,
		Actor:     ev.Actor,
		Action:    ev.Action,
		Details:   ev.Details,
		Timestamp: ev.Timestamp,
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	var err error
	if entry.OldValue, err = marshalValue(ev.OldValue); err != nil {
		return err
	}
	if entry.NewValue, err = marshalValue(ev.NewValue); err != nil {
		return err
	}

	return errors.Wrap(r.db.WithContext(ctx).Create(&entry).Error, "record audit event")
}

func (r *AuditLogRepository) ListAll() ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := r.db.Order("timestamp DESC").Find(&logs).Error
	return logs, errors.Wrap(err, "list audit logs")
}

func marshalValue(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshal audit value")
	}
	return datatypes.JSON(raw), nil
}
