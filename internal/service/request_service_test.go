package service

import (
	"context"
	"errors"
	"testing"

	"tradepost/internal/mailer"
	"tradepost/internal/models"
	"tradepost/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type requestRepoStub struct {
	createFn       func(context.Context, *models.SubscriptionRequest) error
	getByIDFn      func(context.Context, uint) (*models.SubscriptionRequest, error)
	updateFn       func(context.Context, *models.SubscriptionRequest) error
	hasPendingFn   func(context.Context, uint) (bool, error)
	listByUserFn   func(context.Context, uint) ([]models.SubscriptionRequest, error)
	listAllFn      func(context.Context, repository.RequestListOptions) ([]models.SubscriptionRequest, int64, error)
	countPendingFn func(context.Context) (int64, error)
}

func (s *requestRepoStub) Create(ctx context.Context, req *models.SubscriptionRequest) error {
	return s.createFn(ctx, req)
}
func (s *requestRepoStub) GetByID(ctx context.Context, id uint) (*models.SubscriptionRequest, error) {
	return s.getByIDFn(ctx, id)
}
func (s *requestRepoStub) Update(ctx context.Context, req *models.SubscriptionRequest) error {
	return s.updateFn(ctx, req)
}
func (s *requestRepoStub) HasPending(ctx context.Context, userID uint) (bool, error) {
	return s.hasPendingFn(ctx, userID)
}
func (s *requestRepoStub) ListByUser(ctx context.Context, userID uint) ([]models.SubscriptionRequest, error) {
	return s.listByUserFn(ctx, userID)
}
func (s *requestRepoStub) ListAll(ctx context.Context, opts repository.RequestListOptions) ([]models.SubscriptionRequest, int64, error) {
	return s.listAllFn(ctx, opts)
}
func (s *requestRepoStub) CountPending(ctx context.Context) (int64, error) {
	return s.countPendingFn(ctx)
}

func noopRequestRepo() *requestRepoStub {
	return &requestRepoStub{
		createFn: func(_ context.Context, req *models.SubscriptionRequest) error {
			req.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.SubscriptionRequest, error) {
			return &models.SubscriptionRequest{ID: id, Status: models.SubscriptionRequestStatusPending}, nil
		},
		updateFn:     func(context.Context, *models.SubscriptionRequest) error { return nil },
		hasPendingFn: func(context.Context, uint) (bool, error) { return false, nil },
		listByUserFn: func(context.Context, uint) ([]models.SubscriptionRequest, error) { return nil, nil },
		listAllFn: func(context.Context, repository.RequestListOptions) ([]models.SubscriptionRequest, int64, error) {
			return nil, 0, nil
		},
		countPendingFn: func(context.Context) (int64, error) { return 0, nil },
	}
}

func newRequestService(reqRepo *requestRepoStub, userRepo *userRepoStub, mail *mailerStub) *RequestService {
	return NewRequestService(reqRepo, userRepo, noopActivityRepo(), mail,
		"admin@tradepost.local", "http://localhost:5173/admin/users")
}

func TestRequestService_Create(t *testing.T) {
	t.Parallel()

	t.Run("success notifies admin", func(t *testing.T) {
		t.Parallel()
		userRepo := noopUserRepo()
		userRepo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "alice", Email: "alice@example.com"}, nil
		}
		mail := noopMailer()
		var mailed *mailer.RequestEmail
		mail.sendRequestFn = func(_ context.Context, data mailer.RequestEmail) (mailer.Result, error) {
			mailed = &data
			return mailer.Result{Sent: true}, nil
		}

		svc := newRequestService(noopRequestRepo(), userRepo, mail)
		result, err := svc.Create(context.Background(), CreateRequestInput{UserID: 1, Message: "please"})
		require.NoError(t, err)

		assert.Equal(t, "monthly", result.Request.Plan, "plan defaults to monthly")
		assert.Equal(t, models.SubscriptionRequestStatusPending, result.Request.Status)
		require.NotNil(t, mailed)
		assert.Equal(t, "admin@tradepost.local", mailed.To)
		assert.Equal(t, "alice@example.com", mailed.UserEmail)
		require.NotNil(t, result.EmailResult)
		assert.True(t, result.EmailResult.Sent)
	})

	t.Run("invalid plan", func(t *testing.T) {
		t.Parallel()
		svc := newRequestService(noopRequestRepo(), noopUserRepo(), noopMailer())
		_, err := svc.Create(context.Background(), CreateRequestInput{UserID: 1, Plan: "lifetime"})
		assertValidationError(t, err)
	})

	t.Run("already subscribed", func(t *testing.T) {
		t.Parallel()
		userRepo := noopUserRepo()
		userRepo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, IsSubscribed: true}, nil
		}
		svc := newRequestService(noopRequestRepo(), userRepo, noopMailer())
		_, err := svc.Create(context.Background(), CreateRequestInput{UserID: 1})
		assert.True(t, models.IsCode(err, models.CodeConflict))
	})

	t.Run("pending request exists", func(t *testing.T) {
		t.Parallel()
		reqRepo := noopRequestRepo()
		reqRepo.hasPendingFn = func(context.Context, uint) (bool, error) { return true, nil }
		svc := newRequestService(reqRepo, noopUserRepo(), noopMailer())
		_, err := svc.Create(context.Background(), CreateRequestInput{UserID: 1})
		assert.True(t, models.IsCode(err, models.CodeConflict))
	})

	t.Run("email failure keeps request", func(t *testing.T) {
		t.Parallel()
		mail := noopMailer()
		mail.sendRequestFn = func(context.Context, mailer.RequestEmail) (mailer.Result, error) {
			return mailer.Result{}, errors.New("smtp down")
		}
		svc := newRequestService(noopRequestRepo(), noopUserRepo(), mail)
		result, err := svc.Create(context.Background(), CreateRequestInput{UserID: 1})
		require.NoError(t, err)
		assert.NotNil(t, result.Request)
		assert.Nil(t, result.EmailResult)
	})
}

func TestRequestService_Review(t *testing.T) {
	t.Parallel()

	t.Run("approve pending", func(t *testing.T) {
		t.Parallel()
		reqRepo := noopRequestRepo()
		var saved *models.SubscriptionRequest
		reqRepo.updateFn = func(_ context.Context, req *models.SubscriptionRequest) error {
			saved = req
			return nil
		}
		svc := newRequestService(reqRepo, noopUserRepo(), noopMailer())

		req, err := svc.Review(context.Background(), ReviewRequestInput{
			RequestID: 1, AdminID: 9, Approve: true, AdminNotes: "verified seller",
		})
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionRequestStatusApproved, req.Status)
		assert.Equal(t, "verified seller", req.AdminNotes)
		require.NotNil(t, saved)
	})

	t.Run("reject pending", func(t *testing.T) {
		t.Parallel()
		svc := newRequestService(noopRequestRepo(), noopUserRepo(), noopMailer())
		req, err := svc.Review(context.Background(), ReviewRequestInput{RequestID: 1, AdminID: 9})
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionRequestStatusRejected, req.Status)
	})

	t.Run("resolved request is terminal", func(t *testing.T) {
		t.Parallel()
		for _, status := range []models.SubscriptionRequestStatus{
			models.SubscriptionRequestStatusApproved,
			models.SubscriptionRequestStatusRejected,
		} {
			reqRepo := noopRequestRepo()
			reqRepo.getByIDFn = func(_ context.Context, id uint) (*models.SubscriptionRequest, error) {
				return &models.SubscriptionRequest{ID: id, Status: status}, nil
			}
			reqRepo.updateFn = func(context.Context, *models.SubscriptionRequest) error {
				t.Fatal("terminal request must not be updated")
				return nil
			}
			svc := newRequestService(reqRepo, noopUserRepo(), noopMailer())
			_, err := svc.Review(context.Background(), ReviewRequestInput{RequestID: 1, Approve: true})
			assert.True(t, models.IsCode(err, models.CodeConflict), "status %s", status)
		}
	})
}

func TestRequestService_ListAll_StatusFilter(t *testing.T) {
	t.Parallel()

	reqRepo := noopRequestRepo()
	var gotOpts repository.RequestListOptions
	reqRepo.listAllFn = func(_ context.Context, opts repository.RequestListOptions) ([]models.SubscriptionRequest, int64, error) {
		gotOpts = opts
		return nil, 0, nil
	}
	svc := newRequestService(reqRepo, noopUserRepo(), noopMailer())

	_, _, err := svc.ListAll(context.Background(), "pending", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, "pending", gotOpts.Status)

	_, _, err = svc.ListAll(context.Background(), "bogus", 20, 0)
	assertValidationError(t, err)
}
