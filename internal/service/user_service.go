package service

import (
	"context"

	"tradepost/internal/models"
	"tradepost/internal/repository"
	"tradepost/internal/validation"
)

// UserService owns profile reads and updates.
type UserService struct {
	userRepo repository.UserRepository
}

// UpdateProfileInput carries partial profile changes; empty fields are left
// untouched.
type UpdateProfileInput struct {
	UserID   uint
	Username string
	Email    string
	FullName string
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// GetByID returns the user's profile.
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// UpdateProfile applies partial updates after checking that a new username
// or email is not already taken by someone else.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Username != "" && in.Username != user.Username {
		if err := validation.ValidateUsername(in.Username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		existing, err := s.userRepo.GetByUsername(ctx, in.Username)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != user.ID {
			return nil, models.NewConflictError("Username already taken")
		}
		user.Username = in.Username
	}

	if in.Email != "" && in.Email != user.Email {
		if err := validation.ValidateEmail(in.Email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		existing, err := s.userRepo.GetByEmail(ctx, in.Email)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != user.ID {
			return nil, models.NewConflictError("Email already in use")
		}
		user.Email = in.Email
	}

	if in.FullName != "" {
		if len(in.FullName) > 100 {
			return nil, models.NewValidationError("Full name too long (max 100 characters)")
		}
		user.FullName = in.FullName
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
