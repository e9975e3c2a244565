package audit

import (
	"context"

	"gorm.io/gorm"

	"github.com/soukhq/souk-backend/pkg/db/models"
)

// Repository defines persistence for audit trail entries.
type Repository interface {
	Insert(ctx context.Context, event *models.AuditEvent) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an audit repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, event *models.AuditEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}
