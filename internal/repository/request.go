package repository

import (
	"context"
	"errors"

	"tradepost/internal/models"

	"gorm.io/gorm"
)

// RequestListOptions filters and pages the admin request listing.
type RequestListOptions struct {
	Status string
	Limit  int
	Offset int
}

// SubscriptionRequestRepository defines persistence operations for
// subscription requests.
type SubscriptionRequestRepository interface {
	Create(ctx context.Context, req *models.SubscriptionRequest) error
	GetByID(ctx context.Context, id uint) (*models.SubscriptionRequest, error)
	Update(ctx context.Context, req *models.SubscriptionRequest) error
	HasPending(ctx context.Context, userID uint) (bool, error)
	ListByUser(ctx context.Context, userID uint) ([]models.SubscriptionRequest, error)
	ListAll(ctx context.Context, opts RequestListOptions) ([]models.SubscriptionRequest, int64, error)
	CountPending(ctx context.Context) (int64, error)
}

type subscriptionRequestRepository struct {
	db *gorm.DB
}

// NewSubscriptionRequestRepository returns a new SubscriptionRequestRepository implementation.
func NewSubscriptionRequestRepository(db *gorm.DB) SubscriptionRequestRepository {
	return &subscriptionRequestRepository{db: db}
}

func (r *subscriptionRequestRepository) Create(ctx context.Context, req *models.SubscriptionRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *subscriptionRequestRepository) GetByID(ctx context.Context, id uint) (*models.SubscriptionRequest, error) {
	var req models.SubscriptionRequest
	if err := r.db.WithContext(ctx).
		Preload("User").
		First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Subscription request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &req, nil
}

func (r *subscriptionRequestRepository) Update(ctx context.Context, req *models.SubscriptionRequest) error {
	if err := r.db.WithContext(ctx).Save(req).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *subscriptionRequestRepository) HasPending(ctx context.Context, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.SubscriptionRequest{}).
		Where("user_id = ? AND status = ?", userID, models.SubscriptionRequestStatusPending).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *subscriptionRequestRepository) ListByUser(ctx context.Context, userID uint) ([]models.SubscriptionRequest, error) {
	var reqs []models.SubscriptionRequest
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reqs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reqs, nil
}

func (r *subscriptionRequestRepository) ListAll(ctx context.Context, opts RequestListOptions) ([]models.SubscriptionRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SubscriptionRequest{})
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var reqs []models.SubscriptionRequest
	if err := query.
		Preload("User").
		Order("created_at DESC").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&reqs).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return reqs, total, nil
}

func (r *subscriptionRequestRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.SubscriptionRequest{}).
		Where("status = ?", models.SubscriptionRequestStatusPending).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
