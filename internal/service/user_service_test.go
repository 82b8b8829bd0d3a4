package service

import (
	"context"
	"testing"

	"tradepost/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_UpdateProfile(t *testing.T) {
	t.Parallel()

	t.Run("partial update leaves other fields", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "alice", Email: "alice@example.com", FullName: "Alice"}, nil
		}
		var saved *models.User
		repo.updateFn = func(_ context.Context, u *models.User) error {
			saved = u
			return nil
		}

		svc := NewUserService(repo)
		user, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
			UserID:   1,
			FullName: "Alice Cooper",
		})
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "Alice Cooper", user.FullName)
		require.NotNil(t, saved)
	})

	t.Run("username taken", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "alice"}, nil
		}
		repo.getByUsernameFn = func(_ context.Context, username string) (*models.User, error) {
			return &models.User{ID: 2, Username: username}, nil
		}

		svc := NewUserService(repo)
		_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{UserID: 1, Username: "bob"})
		assert.True(t, models.IsCode(err, models.CodeConflict))
	})

	t.Run("email taken", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Email: "alice@example.com"}, nil
		}
		repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
			return &models.User{ID: 2, Email: email}, nil
		}

		svc := NewUserService(repo)
		_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{UserID: 1, Email: "bob@example.com"})
		assert.True(t, models.IsCode(err, models.CodeConflict))
	})

	t.Run("same username skips duplicate check", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "alice"}, nil
		}
		repo.getByUsernameFn = func(context.Context, string) (*models.User, error) {
			t.Fatal("unchanged username must not hit the duplicate check")
			return nil, nil
		}

		svc := NewUserService(repo)
		_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{UserID: 1, Username: "alice"})
		assert.NoError(t, err)
	})

	t.Run("invalid username", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "alice"}, nil
		}
		svc := NewUserService(repo)
		_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{UserID: 1, Username: "x"})
		assertValidationError(t, err)
	})

	t.Run("invalid email", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id}, nil
		}
		svc := NewUserService(repo)
		_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{UserID: 1, Email: "not-an-email"})
		assertValidationError(t, err)
	})
}
