package service

import (
	"context"

	"tradepost/internal/models"
	"tradepost/internal/repository"
)

// DashboardStats is the aggregate snapshot shown on the admin dashboard.
type DashboardStats struct {
	TotalUsers          int64                `json:"total_users"`
	SubscribedUsers     int64                `json:"subscribed_users"`
	TotalPosts          int64                `json:"total_posts"`
	PublishedPosts      int64                `json:"published_posts"`
	TotalViews          int64                `json:"total_views"`
	TotalSubscriptions  int64                `json:"total_subscriptions"`
	ActiveSubscriptions int64                `json:"active_subscriptions"`
	TotalRevenue        float64              `json:"total_revenue"`
	PendingRequests     int64                `json:"pending_requests"`
	RecentActivity      []models.ActivityLog `json:"recent_activity"`
}

// AdminService aggregates cross-entity reads for the admin surface.
type AdminService struct {
	userRepo     repository.UserRepository
	postRepo     repository.PostRepository
	subRepo      repository.SubscriptionRepository
	requestRepo  repository.SubscriptionRequestRepository
	activityRepo repository.ActivityLogRepository
}

// NewAdminService returns a new AdminService.
func NewAdminService(
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	subRepo repository.SubscriptionRepository,
	requestRepo repository.SubscriptionRequestRepository,
	activityRepo repository.ActivityLogRepository,
) *AdminService {
	return &AdminService{
		userRepo:     userRepo,
		postRepo:     postRepo,
		subRepo:      subRepo,
		requestRepo:  requestRepo,
		activityRepo: activityRepo,
	}
}

// ListUsers returns users for the admin panel with search, subscription
// filter, and pagination.
func (s *AdminService) ListUsers(ctx context.Context, opts repository.UserListOptions) ([]models.User, int64, error) {
	return s.userRepo.List(ctx, opts)
}

// Dashboard assembles the stats snapshot. The counts come from separate
// queries and may be marginally inconsistent with one another under write
// load; the dashboard tolerates that.
func (s *AdminService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	userStats, err := s.userRepo.CountStats(ctx)
	if err != nil {
		return nil, err
	}
	postStats, err := s.postRepo.CountStats(ctx)
	if err != nil {
		return nil, err
	}
	subStats, err := s.subRepo.CountStats(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.requestRepo.CountPending(ctx)
	if err != nil {
		return nil, err
	}
	recent, _, err := s.activityRepo.Recent(ctx, 10, 0)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TotalUsers:          userStats.Total,
		SubscribedUsers:     userStats.Subscribed,
		TotalPosts:          postStats.Total,
		PublishedPosts:      postStats.Published,
		TotalViews:          postStats.TotalViews,
		TotalSubscriptions:  subStats.Total,
		ActiveSubscriptions: subStats.Active,
		TotalRevenue:        subStats.Revenue,
		PendingRequests:     pending,
		RecentActivity:      recent,
	}, nil
}

// RecentActivity pages through the audit trail.
func (s *AdminService) RecentActivity(ctx context.Context, limit, offset int) ([]models.ActivityLog, int64, error) {
	return s.activityRepo.Recent(ctx, limit, offset)
}
