package server

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"tradepost/internal/models"
	"tradepost/internal/service"
	"tradepost/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Register handles POST /api/auth/register
// @Summary User registration
// @Description Register a new user account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string,full_name=string} true "Registration request"
// @Success 201 {object} object{success=bool,token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	// Validate input
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username, email, and password are required"))
	}

	if err := validation.ValidateUsername(req.Username); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	// Check if user already exists
	existing, err := s.userRepo.GetByEmailOrUsername(c.Context(), req.Email, req.Username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if existing != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewConflictError("Username or email already in use"))
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
		FullName: req.FullName,
		Role:     models.RoleUser,
	}

	if createErr := s.userRepo.Create(c.Context(), user); createErr != nil {
		return models.RespondError(c, createErr)
	}

	// Welcome email is best-effort; registration succeeds regardless.
	if _, mailErr := s.mail.SendWelcome(c.Context(), user.Email, user.DisplayName()); mailErr != nil {
		slog.WarnContext(c.UserContext(), "welcome email dispatch failed",
			"user_id", user.ID, "error", mailErr)
	}

	token, err := s.generateToken(user.ID, user.Username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate with email or username and return a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{login=string,password=string} true "Login credentials"
// @Success 200 {object} object{success=bool,token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Login    string `json:"login"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	// Older clients send "email"; both identify by email or username.
	login := req.Login
	if login == "" {
		login = req.Email
	}
	if login == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Login and password are required"))
	}

	user, err := s.userRepo.GetByEmailOrUsername(c.Context(), login, login)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); cmpErr != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	token, err := s.generateToken(user.ID, user.Username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	s.logActivity(c, user.ID, models.ActivityLogin,
		fmt.Sprintf("Logged in from %s", c.IP()))

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

// GetMe handles GET /api/auth/me
// @Summary Current user profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,user=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// UpdateProfile handles PUT /api/auth/profile
// @Summary Update profile
// @Description Update username, email, or full name
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{username=string,email=string,full_name=string} true "Profile fields"
// @Success 200 {object} object{success=bool,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/profile [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		FullName string `json:"full_name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.Context(), service.UpdateProfileInput{
		UserID:   userID,
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// logActivity records an audit entry; failures are logged, never surfaced.
func (s *Server) logActivity(c *fiber.Ctx, userID uint, action, details string) {
	if err := s.activityRepo.Log(c.Context(), &userID, action, details); err != nil {
		slog.WarnContext(c.UserContext(), "activity log write failed",
			"action", action, "error", err)
	}
}

// generateToken creates a JWT token for the given user
func (s *Server) generateToken(userID uint, username string) (string, error) {
	now := time.Now()
	expireDays := s.config.JWTExpireDays
	if expireDays <= 0 {
		expireDays = 30
	}

	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      "tradepost-api",
		"aud":      "tradepost-client",
		"exp":      now.Add(time.Duration(expireDays) * 24 * time.Hour).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique token identifier
func generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}
