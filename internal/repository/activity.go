package repository

import (
	"context"

	"tradepost/internal/models"

	"gorm.io/gorm"
)

// ActivityLogRepository defines persistence operations for the audit trail.
// The table is append-only.
type ActivityLogRepository interface {
	Log(ctx context.Context, userID *uint, action, details string) error
	Recent(ctx context.Context, limit, offset int) ([]models.ActivityLog, int64, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository returns a new ActivityLogRepository implementation.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Log(ctx context.Context, userID *uint, action, details string) error {
	entry := models.ActivityLog{
		UserID:  userID,
		Action:  action,
		Details: details,
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *activityLogRepository) Recent(ctx context.Context, limit, offset int) ([]models.ActivityLog, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.ActivityLog{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var logs []models.ActivityLog
	if err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return logs, total, nil
}
