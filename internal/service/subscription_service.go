package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tradepost/internal/mailer"
	"tradepost/internal/middleware"
	"tradepost/internal/models"
	"tradepost/internal/observability"
	"tradepost/internal/repository"
)

// SubscriptionService owns the subscription lifecycle: admin activation and
// deactivation, invoice issuance, and lazy expiry of overdue subscriptions.
type SubscriptionService struct {
	userRepo     repository.UserRepository
	subRepo      repository.SubscriptionRepository
	activityRepo repository.ActivityLogRepository
	mail         mailer.Mailer

	// now is replaceable in tests.
	now func() time.Time
}

// ActivateSubscriptionInput carries the admin-supplied activation parameters.
type ActivateSubscriptionInput struct {
	UserID         uint
	DurationMonths int
	Amount         float64
	Notes          string
	SendInvoice    bool
}

// ActivationResult reports what an activation produced. EmailResult is nil
// when no invoice email was requested.
type ActivationResult struct {
	User         *models.User         `json:"user"`
	Subscription *models.Subscription `json:"subscription"`
	Invoice      *models.Invoice      `json:"invoice,omitempty"`
	EmailResult  *mailer.Result       `json:"email_result,omitempty"`
}

// NewSubscriptionService returns a SubscriptionService using the real clock.
func NewSubscriptionService(
	userRepo repository.UserRepository,
	subRepo repository.SubscriptionRepository,
	activityRepo repository.ActivityLogRepository,
	mail mailer.Mailer,
) *SubscriptionService {
	return &SubscriptionService{
		userRepo:     userRepo,
		subRepo:      subRepo,
		activityRepo: activityRepo,
		mail:         mail,
		now:          time.Now,
	}
}

// WithClock replaces the time source. Tests use this to control expiry.
func (s *SubscriptionService) WithClock(now func() time.Time) *SubscriptionService {
	s.now = now
	return s
}

// Activate grants a subscription for the given number of calendar months.
// Any previously active period is cancelled first, so re-activating an
// already subscribed user extends from now rather than stacking periods.
// Invoice email failure never fails the activation; the invoice row stays
// with a null sent timestamp.
func (s *SubscriptionService) Activate(ctx context.Context, in ActivateSubscriptionInput) (*ActivationResult, error) {
	if in.DurationMonths <= 0 {
		return nil, models.NewConflictError("Duration must be at least 1 month")
	}
	if in.Amount < 0 {
		return nil, models.NewConflictError("Amount cannot be negative")
	}

	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.subRepo.CancelActiveForUser(ctx, user.ID); err != nil {
		return nil, err
	}

	start := s.now().UTC()
	end := start.AddDate(0, in.DurationMonths, 0)

	sub := &models.Subscription{
		UserID:    user.ID,
		Status:    models.SubscriptionStatusActive,
		StartDate: start,
		EndDate:   end,
		Amount:    in.Amount,
		Notes:     in.Notes,
	}
	if err := s.subRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	user.IsSubscribed = true
	user.SubscriptionStart = &start
	user.SubscriptionEnd = &end
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	observability.SubscriptionTransitions.WithLabelValues(observability.TransitionActivated).Inc()
	s.logActivity(ctx, user.ID, models.ActivityUpdateSubscription,
		fmt.Sprintf("Subscription activated for %d month(s)", in.DurationMonths))

	result := &ActivationResult{User: user, Subscription: sub}

	if in.SendInvoice {
		invoice := &models.Invoice{
			UserID:         user.ID,
			SubscriptionID: sub.ID,
			InvoiceNumber:  fmt.Sprintf("INV-%d-%d", start.UnixMilli(), user.ID),
			Amount:         in.Amount,
			Status:         models.InvoiceStatusPaid,
		}
		if err := s.subRepo.CreateInvoice(ctx, invoice); err != nil {
			return nil, err
		}
		result.Invoice = invoice
		result.EmailResult = s.dispatchInvoice(ctx, user, sub, invoice, in.DurationMonths)
	}

	return result, nil
}

// dispatchInvoice emails the invoice and records dispatch bookkeeping. The
// sent markers are written only when the transport accepted the message.
func (s *SubscriptionService) dispatchInvoice(ctx context.Context, user *models.User, sub *models.Subscription, invoice *models.Invoice, months int) *mailer.Result {
	sent, err := s.mail.SendInvoice(ctx, mailer.InvoiceEmail{
		To:             user.Email,
		UserName:       user.DisplayName(),
		InvoiceNumber:  invoice.InvoiceNumber,
		Amount:         invoice.Amount,
		DurationMonths: months,
		StartDate:      sub.StartDate,
		EndDate:        sub.EndDate,
	})
	if err != nil {
		middleware.Logger.Error("invoice email failed, subscription stays active",
			slog.Uint64("user_id", uint64(user.ID)),
			slog.String("invoice_number", invoice.InvoiceNumber),
			slog.String("error", err.Error()),
		)
		return &mailer.Result{}
	}

	sentAt := s.now().UTC()
	if err := s.subRepo.MarkInvoiceSent(ctx, invoice.ID, sentAt); err != nil {
		middleware.Logger.Error("failed to record invoice dispatch",
			slog.Uint64("invoice_id", uint64(invoice.ID)),
			slog.String("error", err.Error()),
		)
	} else {
		invoice.SentAt = &sentAt
	}
	if err := s.subRepo.MarkSubscriptionInvoiced(ctx, sub.ID); err != nil {
		middleware.Logger.Error("failed to flag subscription as invoiced",
			slog.Uint64("subscription_id", uint64(sub.ID)),
			slog.String("error", err.Error()),
		)
	} else {
		sub.InvoiceSent = true
	}
	return &sent
}

// Deactivate revokes a user's subscription. Deactivating an unsubscribed
// user is a no-op, not an error.
func (s *SubscriptionService) Deactivate(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.subRepo.CancelActiveForUser(ctx, user.ID); err != nil {
		return nil, err
	}

	if !user.IsSubscribed {
		return user, nil
	}

	user.IsSubscribed = false
	user.SubscriptionStart = nil
	user.SubscriptionEnd = nil
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	observability.SubscriptionTransitions.WithLabelValues(observability.TransitionDeactivated).Inc()
	s.logActivity(ctx, user.ID, models.ActivityUpdateSubscription, "Subscription deactivated")

	return user, nil
}

// CheckActive reports whether the user currently holds a live subscription.
// A subscription past its end date is expired on first observation: the
// user's flag flips and the call returns a subscription-expired error. Later
// calls see an ordinary unsubscribed user and return false without error.
func (s *SubscriptionService) CheckActive(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return s.checkActiveUser(ctx, user)
}

// CheckActiveUser is CheckActive for an already loaded user record.
func (s *SubscriptionService) CheckActiveUser(ctx context.Context, user *models.User) (bool, error) {
	return s.checkActiveUser(ctx, user)
}

func (s *SubscriptionService) checkActiveUser(ctx context.Context, user *models.User) (bool, error) {
	if !user.IsSubscribed {
		return false, nil
	}
	if user.SubscriptionEnd != nil && s.now().UTC().After(*user.SubscriptionEnd) {
		if err := s.subRepo.CancelActiveForUser(ctx, user.ID); err != nil {
			return false, err
		}
		user.IsSubscribed = false
		user.SubscriptionStart = nil
		user.SubscriptionEnd = nil
		if err := s.userRepo.Update(ctx, user); err != nil {
			return false, err
		}
		observability.SubscriptionTransitions.WithLabelValues(observability.TransitionExpired).Inc()
		s.logActivity(ctx, user.ID, models.ActivityUpdateSubscription, "Subscription expired")
		return false, models.NewSubscriptionExpiredError()
	}
	return true, nil
}

// History returns every subscription period for the user, newest first,
// with invoices attached.
func (s *SubscriptionService) History(ctx context.Context, userID uint) ([]models.Subscription, error) {
	return s.subRepo.ListByUser(ctx, userID)
}

func (s *SubscriptionService) logActivity(ctx context.Context, userID uint, action, details string) {
	if s.activityRepo == nil {
		return
	}
	if err := s.activityRepo.Log(ctx, &userID, action, details); err != nil {
		middleware.Logger.Warn("failed to write activity log",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}
