package repository

import (
	"context"
	"errors"

	"tradepost/internal/models"

	"gorm.io/gorm"
)

// PostListOptions filters and pages post listings.
type PostListOptions struct {
	Search string
	Limit  int
	Offset int
}

// PostStats aggregates post counts for the admin dashboard.
type PostStats struct {
	Total      int64
	Published  int64
	TotalViews int64
}

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	IncrementViews(ctx context.Context, id uint) error
	ListPublished(ctx context.Context, opts PostListOptions) ([]models.Post, int64, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Post, int64, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.Post, int64, error)
	CountStats(ctx context.Context) (*PostStats, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).
		Preload("User").
		First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Post{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// IncrementViews bumps the view counter atomically in SQL so concurrent
// reads never lose an increment.
func (r *postRepository) IncrementViews(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) ListPublished(ctx context.Context, opts PostListOptions) ([]models.Post, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("is_published = ?", true)

	if opts.Search != "" {
		like := "%" + opts.Search + "%"
		query = query.Where("title LIKE ? OR content LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []models.Post
	if err := query.
		Preload("User").
		Order("created_at DESC").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&posts).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Post, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []models.Post
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

func (r *postRepository) ListAll(ctx context.Context, limit, offset int) ([]models.Post, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []models.Post
	if err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

func (r *postRepository) CountStats(ctx context.Context) (*PostStats, error) {
	var stats PostStats
	if err := r.db.WithContext(ctx).Model(&models.Post{}).
		Count(&stats.Total).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("is_published = ?", true).
		Count(&stats.Published).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Model(&models.Post{}).
		Select("COALESCE(SUM(views), 0)").
		Scan(&stats.TotalViews).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return &stats, nil
}
