package server

import (
	"io"
	"log/slog"

	"tradepost/internal/models"
	"tradepost/internal/service"

	"github.com/gofiber/fiber/v2"
)

// viewerContext resolves the gating inputs for a listing request: the
// viewer's identity, admin role, and effective subscription state. An
// expired subscription denies the current request; the caller maps the
// returned error to 403.
func (s *Server) viewerContext(c *fiber.Ctx) (viewerID uint, isAdmin, isSubscribed bool, err error) {
	viewerID, ok := s.optionalUserID(c)
	if !ok {
		return 0, false, false, nil
	}

	user, err := s.userRepo.GetByID(c.Context(), viewerID)
	if err != nil {
		// A stale token for a deleted account browses as anonymous.
		if models.IsCode(err, models.CodeNotFound) {
			return 0, false, false, nil
		}
		return 0, false, false, err
	}

	isSubscribed, err = s.subscriptionService.CheckActiveUser(c.Context(), user)
	if err != nil {
		return viewerID, user.IsAdmin(), false, err
	}
	return viewerID, user.IsAdmin(), isSubscribed, nil
}

// currentUser loads the authenticated user set by AuthRequired.
func (s *Server) currentUser(c *fiber.Ctx) (*models.User, error) {
	userID := c.Locals("userID").(uint)
	return s.userRepo.GetByID(c.Context(), userID)
}

// GetPosts handles GET /api/posts
// @Summary List published listings
// @Description Paginated published listings; contact info requires an active subscription
// @Tags posts
// @Produce json
// @Param search query string false "Search in title and content"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} object{success=bool,posts=[]models.Post,pagination=object}
// @Failure 403 {object} models.ErrorResponse
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 10)
	search := c.Query("search")

	viewerID, isAdmin, isSubscribed, err := s.viewerContext(c)
	if err != nil {
		return models.RespondError(c, err)
	}

	posts, total, err := s.postService.ListPublished(c.Context(), search, page.Limit, page.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}

	service.RedactPosts(posts, viewerID, isAdmin, isSubscribed)

	return c.JSON(fiber.Map{
		"success":    true,
		"posts":      posts,
		"pagination": page.envelope(total),
	})
}

// GetPost handles GET /api/posts/:id
// @Summary Get a single listing
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{success=bool,post=models.Post}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	viewerID, isAdmin, isSubscribed, err := s.viewerContext(c)
	if err != nil {
		return models.RespondError(c, err)
	}

	post, err := s.postService.Get(c.Context(), postID, viewerID, isAdmin)
	if err != nil {
		return models.RespondError(c, err)
	}

	service.RedactPost(post, viewerID, isAdmin, isSubscribed)

	return c.JSON(fiber.Map{
		"success": true,
		"post":    post,
	})
}

// GetMyPosts handles GET /api/posts/user/posts
// @Summary List the authenticated user's own listings
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,posts=[]models.Post,pagination=object}
// @Router /posts/user/posts [get]
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	page := parsePagination(c, 10)

	// Management surface: the owner always sees their own contact info.
	posts, total, err := s.postService.ListByUser(c.Context(), userID, page.Limit, page.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"posts":      posts,
		"pagination": page.envelope(total),
	})
}

// CreatePost handles POST /api/posts
// @Summary Create a listing
// @Description Accepts JSON or multipart form with an optional image file
// @Tags posts
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param content formData string true "Content"
// @Param contact_info formData string false "Contact info"
// @Param image formData file false "Listing image"
// @Success 201 {object} object{success=bool,post=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Title       string `json:"title" form:"title"`
		Content     string `json:"content" form:"content"`
		ContactInfo string `json:"contact_info" form:"contact_info"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	imageURL, err := s.storeUploadedImage(c, userID)
	if err != nil {
		return models.RespondError(c, err)
	}

	post, err := s.postService.Create(c.Context(), service.CreatePostInput{
		UserID:      userID,
		Title:       req.Title,
		Content:     req.Content,
		ContactInfo: req.ContactInfo,
		ImageURL:    imageURL,
	})
	if err != nil {
		// Don't leak the stored file when the listing was rejected.
		if imageURL != "" {
			s.imageService.Remove(imageURL)
		}
		return models.RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"post":    post,
	})
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Update a listing
// @Description Owner or admin only; replaces the image when a new file is sent
// @Tags posts
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{success=bool,post=models.Post}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	actor, err := s.currentUser(c)
	if err != nil {
		return models.RespondError(c, err)
	}

	var req struct {
		Title       string `json:"title" form:"title"`
		Content     string `json:"content" form:"content"`
		ContactInfo string `json:"contact_info" form:"contact_info"`
		RemoveImage bool   `json:"remove_image" form:"remove_image"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	existing, err := s.postRepo.GetByID(c.Context(), postID)
	if err != nil {
		return models.RespondError(c, err)
	}
	oldImage := existing.ImageURL

	in := service.UpdatePostInput{
		ActorID:     actor.ID,
		ActorAdmin:  actor.IsAdmin(),
		PostID:      postID,
		Title:       req.Title,
		Content:     req.Content,
		ContactInfo: req.ContactInfo,
	}

	newImage, err := s.storeUploadedImage(c, actor.ID)
	if err != nil {
		return models.RespondError(c, err)
	}
	switch {
	case newImage != "":
		in.ImageURL = newImage
		in.SetImage = true
	case req.RemoveImage:
		in.SetImage = true
	}

	post, err := s.postService.Update(c.Context(), in)
	if err != nil {
		if newImage != "" {
			s.imageService.Remove(newImage)
		}
		return models.RespondError(c, err)
	}

	if in.SetImage && oldImage != "" && oldImage != newImage {
		s.imageService.Remove(oldImage)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"post":    post,
	})
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a listing
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	actor, err := s.currentUser(c)
	if err != nil {
		return models.RespondError(c, err)
	}

	existing, err := s.postRepo.GetByID(c.Context(), postID)
	if err != nil {
		return models.RespondError(c, err)
	}

	if err := s.postService.Delete(c.Context(), postID, actor.ID, actor.IsAdmin()); err != nil {
		return models.RespondError(c, err)
	}

	if existing.ImageURL != "" {
		s.imageService.Remove(existing.ImageURL)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Post deleted",
	})
}

// storeUploadedImage reads the optional multipart "image" field and stores it
// via the image service. Returns "" when no file was sent.
func (s *Server) storeUploadedImage(c *fiber.Ctx, userID uint) (string, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return "", nil
	}

	src, err := file.Open()
	if err != nil {
		return "", models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return "", models.NewValidationError("Unable to read uploaded file")
	}

	url, err := s.imageService.Store(service.UploadImageInput{
		UserID:      userID,
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		slog.WarnContext(c.UserContext(), "image upload rejected",
			"user_id", userID, "error", err)
		return "", err
	}
	return url, nil
}
