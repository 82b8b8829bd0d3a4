package server

import (
	"tradepost/internal/models"
	"tradepost/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateSubscriptionRequest handles POST /api/subscription/request
// @Summary Request subscription access
// @Description File a request for admin review; notifies the admin by email
// @Tags subscription
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{plan=string,message=string} true "Requested plan (monthly|yearly) and optional message"
// @Success 201 {object} object{success=bool,request=models.SubscriptionRequest,email_sent=bool}
// @Failure 400 {object} models.ErrorResponse
// @Router /subscription/request [post]
func (s *Server) CreateSubscriptionRequest(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Plan    string `json:"plan"`
		Message string `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.requestService.Create(c.Context(), service.CreateRequestInput{
		UserID:  userID,
		Plan:    req.Plan,
		Message: req.Message,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	resp := fiber.Map{
		"success":    true,
		"request":    result.Request,
		"email_sent": result.EmailResult != nil && result.EmailResult.Sent,
	}
	if result.EmailResult != nil && result.EmailResult.PreviewURL != "" {
		resp["preview_url"] = result.EmailResult.PreviewURL
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GetMySubscriptionRequests handles GET /api/subscription/requests
// @Summary List the authenticated user's subscription requests
// @Tags subscription
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,requests=[]models.SubscriptionRequest}
// @Router /subscription/requests [get]
func (s *Server) GetMySubscriptionRequests(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	requests, err := s.requestService.ListMine(c.Context(), userID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"requests": requests,
	})
}

// GetSubscriptionStatus handles GET /api/subscription/status
// @Summary Current subscription state
// @Description Reconciles expiry lazily; the first request after expiry is denied with 403
// @Tags subscription
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,is_subscribed=bool}
// @Failure 403 {object} models.ErrorResponse
// @Router /subscription/status [get]
func (s *Server) GetSubscriptionStatus(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return models.RespondError(c, err)
	}

	active, err := s.subscriptionService.CheckActiveUser(c.Context(), user)
	if err != nil {
		return models.RespondError(c, err)
	}

	history, err := s.subscriptionService.History(c.Context(), user.ID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":            true,
		"is_subscribed":      active,
		"subscription_start": user.SubscriptionStart,
		"subscription_end":   user.SubscriptionEnd,
		"subscriptions":      history,
	})
}
