package repository

import (
	"context"
	"time"

	"tradepost/internal/models"

	"gorm.io/gorm"
)

// SubscriptionStats aggregates subscription figures for the admin dashboard.
type SubscriptionStats struct {
	Total   int64
	Active  int64
	Revenue float64
}

// SubscriptionRepository defines persistence operations for subscriptions
// and their invoices.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *models.Subscription) error
	CancelActiveForUser(ctx context.Context, userID uint) error
	ListByUser(ctx context.Context, userID uint) ([]models.Subscription, error)
	CountStats(ctx context.Context) (*SubscriptionStats, error)

	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	MarkInvoiceSent(ctx context.Context, invoiceID uint, at time.Time) error
	MarkSubscriptionInvoiced(ctx context.Context, subscriptionID uint) error
}

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository returns a new SubscriptionRepository implementation.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// CancelActiveForUser marks every active subscription row for the user as
// cancelled. Activating a new subscription calls this first so at most one
// row per user stays active.
func (r *subscriptionRepository) CancelActiveForUser(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND status = ?", userID, models.SubscriptionStatusActive).
		Update("status", models.SubscriptionStatusCancelled).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *subscriptionRepository) ListByUser(ctx context.Context, userID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := r.db.WithContext(ctx).
		Preload("Invoice").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&subs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return subs, nil
}

func (r *subscriptionRepository) CountStats(ctx context.Context) (*SubscriptionStats, error) {
	var stats SubscriptionStats
	if err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Count(&stats.Total).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("status = ?", models.SubscriptionStatusActive).
		Count(&stats.Active).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("status = ?", models.InvoiceStatusPaid).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.Revenue).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return &stats, nil
}

func (r *subscriptionRepository) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	if err := r.db.WithContext(ctx).Create(invoice).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Invoice number already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// MarkInvoiceSent records the dispatch timestamp. Called only after the
// invoice email was actually handed to the mail transport.
func (r *subscriptionRepository) MarkInvoiceSent(ctx context.Context, invoiceID uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		Update("sent_at", at)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Invoice", invoiceID)
	}
	return nil
}

func (r *subscriptionRepository) MarkSubscriptionInvoiced(ctx context.Context, subscriptionID uint) error {
	result := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ?", subscriptionID).
		Update("invoice_sent", true)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Subscription", subscriptionID)
	}
	return nil
}
