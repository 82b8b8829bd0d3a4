package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tradepost/internal/config"
	"tradepost/internal/database"
	"tradepost/internal/mailer"
	"tradepost/internal/models"
	"tradepost/internal/repository"
	"tradepost/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestServer builds a Server over an isolated in-memory sqlite database
// with the full route table registered. Redis is absent, so caching and
// per-route rate limits are inert.
func newTestServer(t *testing.T) (*Server, *fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		Port:          "8080",
		Env:           "test",
		JWTSecret:     "test-secret",
		JWTExpireDays: 30,
		EmailFrom:     "noreply@tradepost.local",
		AdminEmail:    "admin@tradepost.local",
		FrontendURL:   "http://localhost:5173",
		UploadDir:     t.TempDir(),
		MaxUploadMB:   5,
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	requestRepo := repository.NewSubscriptionRequestRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	mail := mailer.NewFileMailer(cfg.EmailFrom, t.TempDir())

	s := &Server{
		config:       cfg,
		db:           db,
		userRepo:     userRepo,
		postRepo:     postRepo,
		subRepo:      subRepo,
		requestRepo:  requestRepo,
		activityRepo: activityRepo,
		mail:         mail,
	}
	s.userService = service.NewUserService(userRepo)
	s.postService = service.NewPostService(postRepo, activityRepo)
	s.subscriptionService = service.NewSubscriptionService(userRepo, subRepo, activityRepo, mail)
	s.requestService = service.NewRequestService(requestRepo, userRepo, activityRepo, mail,
		cfg.AdminEmail, cfg.FrontendURL+"/admin/users")
	s.adminService = service.NewAdminService(userRepo, postRepo, subRepo, requestRepo, activityRepo)
	s.imageService = service.NewImageService(cfg)

	app := fiber.New()
	s.SetupRoutes(app)

	return s, app, db
}

// seedServerUser inserts a user with the given role and returns it with a
// valid bearer token.
func seedServerUser(t *testing.T, s *Server, db *gorm.DB, username, role string) (*models.User, string) {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hashed),
		Role:     role,
	}
	require.NoError(t, db.Create(user).Error)

	token, err := s.generateToken(user.ID, user.Username)
	require.NoError(t, err)
	return user, token
}

// subscribeUser opens an active period ending at end for the user.
func subscribeUser(t *testing.T, db *gorm.DB, user *models.User, end time.Time) {
	t.Helper()

	start := end.AddDate(0, -1, 0)
	sub := &models.Subscription{
		UserID:    user.ID,
		Status:    models.SubscriptionStatusActive,
		StartDate: start,
		EndDate:   end,
		Amount:    9.99,
	}
	require.NoError(t, db.Create(sub).Error)

	user.IsSubscribed = true
	user.SubscriptionStart = &start
	user.SubscriptionEnd = &end
	require.NoError(t, db.Save(user).Error)
}

// doJSON performs an app.Test request with an optional JSON body and bearer token.
func doJSON(t *testing.T, app *fiber.App, method, target, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// decodeBody unmarshals a response body into a generic map.
func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	return out
}
