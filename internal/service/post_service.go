package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tradepost/internal/middleware"
	"tradepost/internal/models"
	"tradepost/internal/observability"
	"tradepost/internal/repository"
)

const (
	maxPostTitleLen   = 200
	maxPostContentLen = 10000
	maxContactInfoLen = 500
)

// PostService owns listing CRUD, ownership checks, and the view counter.
// Contact visibility is the caller's concern; this service returns posts
// unredacted.
type PostService struct {
	postRepo     repository.PostRepository
	activityRepo repository.ActivityLogRepository
}

// CreatePostInput carries fields for a new listing.
type CreatePostInput struct {
	UserID      uint
	Title       string
	Content     string
	ContactInfo string
	ImageURL    string
}

// UpdatePostInput carries partial updates; empty strings leave the field
// untouched except ImageURL, where SetImage distinguishes clearing.
type UpdatePostInput struct {
	ActorID     uint
	ActorAdmin  bool
	PostID      uint
	Title       string
	Content     string
	ContactInfo string
	ImageURL    string
	SetImage    bool
}

// NewPostService returns a new PostService.
func NewPostService(postRepo repository.PostRepository, activityRepo repository.ActivityLogRepository) *PostService {
	return &PostService{postRepo: postRepo, activityRepo: activityRepo}
}

func validatePostFields(title, content, contactInfo string) error {
	if strings.TrimSpace(title) == "" {
		return models.NewValidationError("Title is required")
	}
	if len(title) > maxPostTitleLen {
		return models.NewValidationError("Title too long (max 200 characters)")
	}
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Content is required")
	}
	if len(content) > maxPostContentLen {
		return models.NewValidationError("Content too long (max 10000 characters)")
	}
	if len(contactInfo) > maxContactInfoLen {
		return models.NewValidationError("Contact info too long (max 500 characters)")
	}
	return nil
}

// Create publishes a new listing for the user.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validatePostFields(in.Title, in.Content, in.ContactInfo); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:       strings.TrimSpace(in.Title),
		Content:     in.Content,
		ContactInfo: in.ContactInfo,
		ImageURL:    in.ImageURL,
		UserID:      in.UserID,
		IsPublished: true,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	s.logActivity(ctx, in.UserID, models.ActivityCreatePost, fmt.Sprintf("Created post %q", post.Title))
	return post, nil
}

// Get returns a single post and bumps its view counter. Unpublished posts
// are visible only to their owner and admins; everyone else gets not-found
// rather than a hint that the post exists.
func (s *PostService) Get(ctx context.Context, postID, viewerID uint, viewerAdmin bool) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	if !post.IsPublished && post.UserID != viewerID && !viewerAdmin {
		return nil, models.NewNotFoundError("Post", postID)
	}

	if err := s.postRepo.IncrementViews(ctx, post.ID); err != nil {
		middleware.Logger.Warn("failed to increment post views",
			slog.Uint64("post_id", uint64(post.ID)),
			slog.String("error", err.Error()),
		)
	} else {
		post.Views++
		observability.PostViews.Inc()
	}

	return post, nil
}

// ListPublished returns published posts for browsing.
func (s *PostService) ListPublished(ctx context.Context, search string, limit, offset int) ([]models.Post, int64, error) {
	return s.postRepo.ListPublished(ctx, repository.PostListOptions{
		Search: search,
		Limit:  limit,
		Offset: offset,
	})
}

// ListByUser returns the user's own posts, published or not.
func (s *PostService) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Post, int64, error) {
	return s.postRepo.ListByUser(ctx, userID, limit, offset)
}

// ListAll returns every post for the admin view.
func (s *PostService) ListAll(ctx context.Context, limit, offset int) ([]models.Post, int64, error) {
	return s.postRepo.ListAll(ctx, limit, offset)
}

// Update edits a listing. Only the owner or an admin may edit.
func (s *PostService) Update(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.UserID != in.ActorID && !in.ActorAdmin {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}

	if in.Title != "" {
		post.Title = strings.TrimSpace(in.Title)
	}
	if in.Content != "" {
		post.Content = in.Content
	}
	if in.ContactInfo != "" {
		post.ContactInfo = in.ContactInfo
	}
	if in.SetImage {
		post.ImageURL = in.ImageURL
	}

	if err := validatePostFields(post.Title, post.Content, post.ContactInfo); err != nil {
		return nil, err
	}
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes a listing. Only the owner or an admin may delete.
func (s *PostService) Delete(ctx context.Context, postID, actorID uint, actorAdmin bool) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != actorID && !actorAdmin {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	return s.postRepo.Delete(ctx, post.ID)
}

// TogglePublish flips a post's published flag. Admin-only; the route layer
// enforces that.
func (s *PostService) TogglePublish(ctx context.Context, postID, adminID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	post.IsPublished = !post.IsPublished
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}

	state := "unpublished"
	if post.IsPublished {
		state = "published"
	}
	s.logActivity(ctx, adminID, models.ActivityTogglePost, fmt.Sprintf("Post %d %s", post.ID, state))
	return post, nil
}

func (s *PostService) logActivity(ctx context.Context, userID uint, action, details string) {
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
