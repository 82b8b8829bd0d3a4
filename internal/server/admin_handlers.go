package server

import (
	"tradepost/internal/models"
	"tradepost/internal/repository"
	"tradepost/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AdminListUsers handles GET /api/admin/users
// @Summary List users
// @Description Paginated user list with search and subscription filter
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search username, email, or full name"
// @Param subscribed query bool false "Filter by subscription flag"
// @Success 200 {object} object{success=bool,users=[]models.User,pagination=object}
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/users [get]
func (s *Server) AdminListUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	opts := repository.UserListOptions{
		Search: c.Query("search"),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if raw := c.Query("subscribed"); raw != "" {
		subscribed := raw == "true" || raw == "1"
		opts.Subscribed = &subscribed
	}

	users, total, err := s.adminService.ListUsers(c.Context(), opts)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"users":      users,
		"pagination": page.envelope(total),
	})
}

// AdminUpdateSubscription handles PUT /api/admin/users/:id/subscription
// @Summary Activate or deactivate a user's subscription
// @Description Activation opens a new period and optionally emails an invoice
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body object{action=string,duration_months=int,amount=number,notes=string,send_invoice=bool} true "Subscription update"
// @Success 200 {object} object{success=bool,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id}/subscription [put]
func (s *Server) AdminUpdateSubscription(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Action         string  `json:"action"`
		DurationMonths int     `json:"duration_months"`
		Amount         float64 `json:"amount"`
		Notes          string  `json:"notes"`
		SendInvoice    bool    `json:"send_invoice"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	switch req.Action {
	case "activate":
		// Omitted duration means one month; negatives are rejected downstream.
		if req.DurationMonths == 0 {
			req.DurationMonths = 1
		}
		result, actErr := s.subscriptionService.Activate(c.Context(), service.ActivateSubscriptionInput{
			UserID:         userID,
			DurationMonths: req.DurationMonths,
			Amount:         req.Amount,
			Notes:          req.Notes,
			SendInvoice:    req.SendInvoice,
		})
		if actErr != nil {
			return models.RespondError(c, actErr)
		}

		resp := fiber.Map{
			"success":      true,
			"user":         result.User,
			"subscription": result.Subscription,
		}
		if result.Invoice != nil {
			resp["invoice"] = result.Invoice
			resp["email_sent"] = result.EmailResult != nil && result.EmailResult.Sent
			if result.EmailResult != nil && result.EmailResult.PreviewURL != "" {
				resp["preview_url"] = result.EmailResult.PreviewURL
			}
		}
		return c.JSON(resp)

	case "deactivate":
		user, deactErr := s.subscriptionService.Deactivate(c.Context(), userID)
		if deactErr != nil {
			return models.RespondError(c, deactErr)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"user":    user,
		})

	default:
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Action must be 'activate' or 'deactivate'"))
	}
}

// AdminUserSubscriptions handles GET /api/admin/users/:id/subscriptions
// @Summary Subscription history for a user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} object{success=bool,subscriptions=[]models.Subscription}
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id}/subscriptions [get]
func (s *Server) AdminUserSubscriptions(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	// 404 for unknown users rather than an empty history.
	if _, lookupErr := s.userRepo.GetByID(c.Context(), userID); lookupErr != nil {
		return models.RespondError(c, lookupErr)
	}

	history, err := s.subscriptionService.History(c.Context(), userID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"subscriptions": history,
	})
}

// AdminListRequests handles GET /api/subscription/admin/requests
// @Summary List subscription requests
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status (pending|approved|rejected)"
// @Success 200 {object} object{success=bool,requests=[]models.SubscriptionRequest,pagination=object}
// @Router /subscription/admin/requests [get]
func (s *Server) AdminListRequests(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	requests, total, err := s.requestService.ListAll(c.Context(), c.Query("status"), page.Limit, page.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"requests":   requests,
		"pagination": page.envelope(total),
	})
}

// AdminReviewRequest handles PUT /api/subscription/admin/requests/:id
// @Summary Approve or reject a subscription request
// @Description Records the decision only; activation is a separate action
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Param request body object{status=string,admin_notes=string} true "Decision (approved|rejected) and notes"
// @Success 200 {object} object{success=bool,request=models.SubscriptionRequest}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /subscription/admin/requests/{id} [put]
func (s *Server) AdminReviewRequest(c *fiber.Ctx) error {
	requestID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	adminID := c.Locals("userID").(uint)

	var req struct {
		Status     string `json:"status"`
		AdminNotes string `json:"admin_notes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Status != string(models.SubscriptionRequestStatusApproved) &&
		req.Status != string(models.SubscriptionRequestStatusRejected) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Status must be 'approved' or 'rejected'"))
	}

	request, err := s.requestService.Review(c.Context(), service.ReviewRequestInput{
		RequestID:  requestID,
		AdminID:    adminID,
		Approve:    req.Status == string(models.SubscriptionRequestStatusApproved),
		AdminNotes: req.AdminNotes,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"request": request,
	})
}

// AdminListPosts handles GET /api/admin/posts
// @Summary List all listings including unpublished
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,posts=[]models.Post,pagination=object}
// @Router /admin/posts [get]
func (s *Server) AdminListPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	posts, total, err := s.postService.ListAll(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"posts":      posts,
		"pagination": page.envelope(total),
	})
}

// AdminTogglePost handles PUT /api/admin/posts/:id/visibility
// @Summary Toggle a listing's published flag
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{success=bool,post=models.Post}
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/posts/{id}/visibility [put]
func (s *Server) AdminTogglePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	adminID := c.Locals("userID").(uint)

	post, err := s.postService.TogglePublish(c.Context(), postID, adminID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"post":    post,
	})
}

// AdminDashboard handles GET /api/admin/dashboard/stats
// @Summary Dashboard aggregates
// @Description User, listing, subscription, and revenue aggregates plus recent activity
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,stats=service.DashboardStats}
// @Router /admin/dashboard/stats [get]
func (s *Server) AdminDashboard(c *fiber.Ctx) error {
	stats, err := s.adminService.Dashboard(c.Context())
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"stats":   stats,
	})
}

// AdminActivity handles GET /api/admin/activity
// @Summary Paginated audit log
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,activity=[]models.ActivityLog,pagination=object}
// @Router /admin/activity [get]
func (s *Server) AdminActivity(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	activity, total, err := s.adminService.RecentActivity(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"activity":   activity,
		"pagination": page.envelope(total),
	})
}

// AdminTestEmail handles POST /api/admin/test-email
// @Summary Send a test email
// @Description Verifies SMTP configuration by sending the welcome template
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{to=string} false "Recipient; defaults to the configured admin address"
// @Success 200 {object} object{success=bool,email_sent=bool}
// @Router /admin/test-email [post]
func (s *Server) AdminTestEmail(c *fiber.Ctx) error {
	var req struct {
		To string `json:"to"`
	}
	// Body is optional.
	_ = c.BodyParser(&req)

	to := req.To
	if to == "" {
		to = s.config.AdminEmail
	}
	if to == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No recipient configured"))
	}

	result, err := s.mail.SendWelcome(c.Context(), to, "Test Recipient")
	if err != nil {
		return c.JSON(fiber.Map{
			"success":    true,
			"email_sent": false,
			"message":    "Email dispatch failed",
		})
	}

	resp := fiber.Map{
		"success":    true,
		"email_sent": result.Sent,
	}
	if result.PreviewURL != "" {
		resp["preview_url"] = result.PreviewURL
	}
	return c.JSON(resp)
}
