package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tradepost/internal/models"
	"tradepost/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postRepoStub struct {
	getByIDFn        func(context.Context, uint) (*models.Post, error)
	createFn         func(context.Context, *models.Post) error
	updateFn         func(context.Context, *models.Post) error
	deleteFn         func(context.Context, uint) error
	incrementViewsFn func(context.Context, uint) error
	listPublishedFn  func(context.Context, repository.PostListOptions) ([]models.Post, int64, error)
	listByUserFn     func(context.Context, uint, int, int) ([]models.Post, int64, error)
	listAllFn        func(context.Context, int, int) ([]models.Post, int64, error)
	countStatsFn     func(context.Context) (*repository.PostStats, error)
}

func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) IncrementViews(ctx context.Context, id uint) error {
	return s.incrementViewsFn(ctx, id)
}
func (s *postRepoStub) ListPublished(ctx context.Context, opts repository.PostListOptions) ([]models.Post, int64, error) {
	return s.listPublishedFn(ctx, opts)
}
func (s *postRepoStub) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Post, int64, error) {
	return s.listByUserFn(ctx, userID, limit, offset)
}
func (s *postRepoStub) ListAll(ctx context.Context, limit, offset int) ([]models.Post, int64, error) {
	return s.listAllFn(ctx, limit, offset)
}
func (s *postRepoStub) CountStats(ctx context.Context) (*repository.PostStats, error) {
	return s.countStatsFn(ctx)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, IsPublished: true}, nil
		},
		createFn: func(_ context.Context, p *models.Post) error {
			p.ID = 1
			return nil
		},
		updateFn:         func(context.Context, *models.Post) error { return nil },
		deleteFn:         func(context.Context, uint) error { return nil },
		incrementViewsFn: func(context.Context, uint) error { return nil },
		listPublishedFn: func(context.Context, repository.PostListOptions) ([]models.Post, int64, error) {
			return nil, 0, nil
		},
		listByUserFn: func(context.Context, uint, int, int) ([]models.Post, int64, error) {
			return nil, 0, nil
		},
		listAllFn: func(context.Context, int, int) ([]models.Post, int64, error) {
			return nil, 0, nil
		},
		countStatsFn: func(context.Context) (*repository.PostStats, error) {
			return &repository.PostStats{}, nil
		},
	}
}

func TestPostService_Create_Validation(t *testing.T) {
	t.Parallel()
	svc := NewPostService(noopPostRepo(), noopActivityRepo())
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreatePostInput
	}{
		{name: "empty title", input: CreatePostInput{UserID: 1, Content: "c"}},
		{name: "blank title", input: CreatePostInput{UserID: 1, Title: "   ", Content: "c"}},
		{name: "title too long", input: CreatePostInput{UserID: 1, Title: strings.Repeat("x", 201), Content: "c"}},
		{name: "empty content", input: CreatePostInput{UserID: 1, Title: "t"}},
		{name: "content too long", input: CreatePostInput{UserID: 1, Title: "t", Content: strings.Repeat("x", 10001)}},
		{name: "contact info too long", input: CreatePostInput{UserID: 1, Title: "t", Content: "c", ContactInfo: strings.Repeat("x", 501)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.input)
			assertValidationError(t, err)
		})
	}
}

func TestPostService_Create_Success(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	var created *models.Post
	repo.createFn = func(_ context.Context, p *models.Post) error {
		p.ID = 42
		created = p
		return nil
	}
	logged := false
	activity := noopActivityRepo()
	activity.logFn = func(_ context.Context, userID *uint, action, _ string) error {
		logged = true
		assert.Equal(t, models.ActivityCreatePost, action)
		require.NotNil(t, userID)
		assert.EqualValues(t, 9, *userID)
		return nil
	}

	svc := NewPostService(repo, activity)
	post, err := svc.Create(context.Background(), CreatePostInput{
		UserID:      9,
		Title:       "  Bike for sale  ",
		Content:     "Great bike",
		ContactInfo: "call me",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bike for sale", post.Title, "title is trimmed")
	assert.True(t, post.IsPublished)
	require.NotNil(t, created)
	assert.True(t, logged)
}

func TestPostService_Get(t *testing.T) {
	t.Parallel()

	t.Run("increments views", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 2, IsPublished: true, Views: 5}, nil
		}
		bumped := false
		repo.incrementViewsFn = func(context.Context, uint) error {
			bumped = true
			return nil
		}

		svc := NewPostService(repo, nil)
		post, err := svc.Get(context.Background(), 1, 3, false)
		require.NoError(t, err)
		assert.True(t, bumped)
		assert.EqualValues(t, 6, post.Views)
	})

	t.Run("unpublished hidden from strangers", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 2, IsPublished: false}, nil
		}

		svc := NewPostService(repo, nil)
		_, err := svc.Get(context.Background(), 1, 3, false)
		assert.True(t, models.IsCode(err, models.CodeNotFound))
	})

	t.Run("unpublished visible to owner and admin", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 2, IsPublished: false}, nil
		}
		svc := NewPostService(repo, nil)

		_, err := svc.Get(context.Background(), 1, 2, false)
		assert.NoError(t, err)

		_, err = svc.Get(context.Background(), 1, 3, true)
		assert.NoError(t, err)
	})
}

func TestPostService_Update_Ownership(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{ID: id, UserID: 2, Title: "t", Content: "c"}, nil
	}
	svc := NewPostService(repo, nil)
	ctx := context.Background()

	t.Run("stranger forbidden", func(t *testing.T) {
		_, err := svc.Update(ctx, UpdatePostInput{PostID: 1, ActorID: 3})
		assert.True(t, models.IsCode(err, models.CodeForbidden))
	})

	t.Run("owner allowed", func(t *testing.T) {
		post, err := svc.Update(ctx, UpdatePostInput{PostID: 1, ActorID: 2, Title: "new title"})
		require.NoError(t, err)
		assert.Equal(t, "new title", post.Title)
		assert.Equal(t, "c", post.Content, "content unchanged when not provided")
	})

	t.Run("admin allowed", func(t *testing.T) {
		_, err := svc.Update(ctx, UpdatePostInput{PostID: 1, ActorID: 3, ActorAdmin: true, Content: "edited"})
		assert.NoError(t, err)
	})

	t.Run("image cleared only with SetImage", func(t *testing.T) {
		repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 2, Title: "t", Content: "c", ImageURL: "/uploads/a.jpg"}, nil
		}
		post, err := svc.Update(ctx, UpdatePostInput{PostID: 1, ActorID: 2})
		require.NoError(t, err)
		assert.Equal(t, "/uploads/a.jpg", post.ImageURL)

		post, err = svc.Update(ctx, UpdatePostInput{PostID: 1, ActorID: 2, SetImage: true, ImageURL: ""})
		require.NoError(t, err)
		assert.Empty(t, post.ImageURL)
	})
}

func TestPostService_Delete_Ownership(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{ID: id, UserID: 2}, nil
	}
	deleted := false
	repo.deleteFn = func(context.Context, uint) error {
		deleted = true
		return nil
	}
	svc := NewPostService(repo, nil)
	ctx := context.Background()

	err := svc.Delete(ctx, 1, 3, false)
	assert.True(t, models.IsCode(err, models.CodeForbidden))
	assert.False(t, deleted)

	require.NoError(t, svc.Delete(ctx, 1, 2, false))
	assert.True(t, deleted)
}

func TestPostService_TogglePublish(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{ID: id, UserID: 2, IsPublished: true}, nil
	}
	var savedState *bool
	repo.updateFn = func(_ context.Context, p *models.Post) error {
		savedState = &p.IsPublished
		return nil
	}

	activity := noopActivityRepo()
	var loggedAction string
	activity.logFn = func(_ context.Context, _ *uint, action, _ string) error {
		loggedAction = action
		return nil
	}

	svc := NewPostService(repo, activity)
	post, err := svc.TogglePublish(context.Background(), 1, 99)
	require.NoError(t, err)
	assert.False(t, post.IsPublished)
	require.NotNil(t, savedState)
	assert.False(t, *savedState)
	assert.Equal(t, models.ActivityTogglePost, loggedAction)
}

func TestPostService_RepoErrorPropagates(t *testing.T) {
	t.Parallel()

	repoErr := errors.New("db down")
	repo := noopPostRepo()
	repo.getByIDFn = func(context.Context, uint) (*models.Post, error) { return nil, repoErr }

	svc := NewPostService(repo, nil)
	_, err := svc.Get(context.Background(), 1, 0, false)
	assert.ErrorIs(t, err, repoErr)
}
