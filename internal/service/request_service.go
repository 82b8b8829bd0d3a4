package service

import (
	"context"
	"fmt"
	"log/slog"

	"tradepost/internal/mailer"
	"tradepost/internal/middleware"
	"tradepost/internal/models"
	"tradepost/internal/repository"
)

var allowedPlans = map[string]struct{}{
	"monthly": {},
	"yearly":  {},
}

// RequestService owns the subscription request workflow: users file a
// request, admins approve or reject it. Approval records intent only; the
// actual grant is a separate admin activation.
type RequestService struct {
	requestRepo  repository.SubscriptionRequestRepository
	userRepo     repository.UserRepository
	activityRepo repository.ActivityLogRepository
	mail         mailer.Mailer
	adminEmail   string
	adminURL     string
}

// CreateRequestInput carries a user's subscription request.
type CreateRequestInput struct {
	UserID  uint
	Plan    string
	Message string
}

// CreateRequestResult bundles the stored request with the admin
// notification outcome.
type CreateRequestResult struct {
	Request     *models.SubscriptionRequest `json:"request"`
	EmailResult *mailer.Result              `json:"email_result,omitempty"`
}

// ReviewRequestInput carries an admin's decision on a pending request.
type ReviewRequestInput struct {
	RequestID  uint
	AdminID    uint
	Approve    bool
	AdminNotes string
}

// NewRequestService returns a new RequestService.
func NewRequestService(
	requestRepo repository.SubscriptionRequestRepository,
	userRepo repository.UserRepository,
	activityRepo repository.ActivityLogRepository,
	mail mailer.Mailer,
	adminEmail, adminURL string,
) *RequestService {
	return &RequestService{
		requestRepo:  requestRepo,
		userRepo:     userRepo,
		activityRepo: activityRepo,
		mail:         mail,
		adminEmail:   adminEmail,
		adminURL:     adminURL,
	}
}

// Create files a subscription request. Users with an active subscription or
// an open pending request cannot file another.
func (s *RequestService) Create(ctx context.Context, in CreateRequestInput) (*CreateRequestResult, error) {
	plan := in.Plan
	if plan == "" {
		plan = "monthly"
	}
	if _, ok := allowedPlans[plan]; !ok {
		return nil, models.NewValidationError("Invalid plan; choose monthly or yearly")
	}
	if len(in.Message) > 1000 {
		return nil, models.NewValidationError("Message too long (max 1000 characters)")
	}

	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if user.IsSubscribed {
		return nil, models.NewConflictError("You already have an active subscription")
	}

	pending, err := s.requestRepo.HasPending(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, models.NewConflictError("You already have a pending subscription request")
	}

	req := &models.SubscriptionRequest{
		UserID:  user.ID,
		Plan:    plan,
		Message: in.Message,
		Status:  models.SubscriptionRequestStatusPending,
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, err
	}

	if s.activityRepo != nil {
		if err := s.activityRepo.Log(ctx, &user.ID, models.ActivitySubscriptionRequest,
			fmt.Sprintf("Requested %s subscription", plan)); err != nil {
			middleware.Logger.Warn("failed to write activity log", slog.String("error", err.Error()))
		}
	}

	result := &CreateRequestResult{Request: req}

	// Admin notification is best effort; the request stands either way.
	sent, err := s.mail.SendSubscriptionRequest(ctx, mailer.RequestEmail{
		To:        s.adminEmail,
		UserName:  user.DisplayName(),
		UserEmail: user.Email,
		Plan:      plan,
		RequestID: req.ID,
		Message:   in.Message,
		AdminURL:  s.adminURL,
	})
	if err != nil {
		middleware.Logger.Error("admin notification email failed",
			slog.Uint64("request_id", uint64(req.ID)),
			slog.String("error", err.Error()),
		)
	} else {
		result.EmailResult = &sent
	}

	return result, nil
}

// ListMine returns the user's own requests, newest first.
func (s *RequestService) ListMine(ctx context.Context, userID uint) ([]models.SubscriptionRequest, error) {
	return s.requestRepo.ListByUser(ctx, userID)
}

// ListAll returns requests for the admin view, optionally filtered by status.
func (s *RequestService) ListAll(ctx context.Context, status string, limit, offset int) ([]models.SubscriptionRequest, int64, error) {
	switch status {
	case "", string(models.SubscriptionRequestStatusPending),
		string(models.SubscriptionRequestStatusApproved),
		string(models.SubscriptionRequestStatusRejected):
	default:
		return nil, 0, models.NewValidationError("Invalid status filter")
	}
	return s.requestRepo.ListAll(ctx, repository.RequestListOptions{
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
}

// Review resolves a pending request. Approved and rejected are terminal:
// re-reviewing a resolved request is a conflict. Approval does not activate
// the subscription.
func (s *RequestService) Review(ctx context.Context, in ReviewRequestInput) (*models.SubscriptionRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.SubscriptionRequestStatusPending {
		return nil, models.NewConflictError(fmt.Sprintf("Request already %s", req.Status))
	}

	if in.Approve {
		req.Status = models.SubscriptionRequestStatusApproved
	} else {
		req.Status = models.SubscriptionRequestStatusRejected
	}
	req.AdminNotes = in.AdminNotes

	if err := s.requestRepo.Update(ctx, req); err != nil {
		return nil, err
	}

	if s.activityRepo != nil {
		if err := s.activityRepo.Log(ctx, &in.AdminID, models.ActivitySubscriptionRequest,
			fmt.Sprintf("Request %d %s", req.ID, req.Status)); err != nil {
			middleware.Logger.Warn("failed to write activity log", slog.String("error", err.Error()))
		}
	}

	return req, nil
}
