// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"strings"
	"time"

	"tradepost/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

// DefaultPassword is set on every seeded account.
const DefaultPassword = "password123"

// Seeder populates the database with test data.
type Seeder struct {
	db   *gorm.DB
	now  func() time.Time
	hash string
}

// NewSeeder returns a Seeder bound to db.
func NewSeeder(db *gorm.DB) (*Seeder, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash seed password: %w", err)
	}
	return &Seeder{db: db, now: time.Now, hash: string(hashed)}, nil
}

// ClearAll removes all seedable rows. Order matters for foreign keys.
func (s *Seeder) ClearAll() error {
	tables := []any{
		&models.ActivityLog{},
		&models.Invoice{},
		&models.Subscription{},
		&models.SubscriptionRequest{},
		&models.Post{},
		&models.User{},
	}
	for _, table := range tables {
		if err := s.db.Unscoped().Where("1 = 1").Delete(table).Error; err != nil {
			return fmt.Errorf("failed to clear %T: %w", table, err)
		}
	}
	return nil
}

// Run seeds users, listings, subscriptions, and requests.
func (s *Seeder) Run(opts Options) error {
	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway...")
		}
	}

	users, err := s.createUsers(opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("created %d users (1 admin)", len(users))

	subscribed, err := s.activateSubscriptions(users)
	if err != nil {
		return fmt.Errorf("failed to activate subscriptions: %w", err)
	}
	log.Printf("activated %d subscriptions", subscribed)

	posts, err := s.createPosts(users, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("created %d posts", posts)

	requests, err := s.createRequests(users)
	if err != nil {
		return fmt.Errorf("failed to create subscription requests: %w", err)
	}
	log.Printf("created %d subscription requests", requests)

	return nil
}

func (s *Seeder) createUsers(n int) ([]models.User, error) {
	users := make([]models.User, 0, n+1)

	admin := models.User{
		Username: "admin",
		Email:    "admin@tradepost.local",
		Password: s.hash,
		FullName: "Site Administrator",
		Role:     models.RoleAdmin,
	}
	if err := s.db.Create(&admin).Error; err != nil {
		return nil, err
	}
	users = append(users, admin)

	for i := 0; i < n; i++ {
		person := gofakeit.Person()
		username := fmt.Sprintf("%s%d", strings.ToLower(person.FirstName), gofakeit.Number(10, 9999))
		user := models.User{
			Username: username,
			Email:    fmt.Sprintf("%s@%s", username, gofakeit.DomainName()),
			Password: s.hash,
			FullName: person.FirstName + " " + person.LastName,
			Role:     models.RoleUser,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// activateSubscriptions opens an active period for roughly a third of the
// non-admin users and marks one of them as already lapsed.
func (s *Seeder) activateSubscriptions(users []models.User) (int, error) {
	count := 0
	for i := range users {
		user := &users[i]
		if user.Role == models.RoleAdmin || i%3 != 1 {
			continue
		}

		months := gofakeit.RandomInt([]int{1, 1, 1, 12})
		start := s.now().AddDate(0, 0, -gofakeit.Number(0, 20))
		end := start.AddDate(0, months, 0)
		// One stale flag so the lazy expiry path has data to reconcile.
		if count == 0 {
			start = s.now().AddDate(0, -2, 0)
			end = start.AddDate(0, 1, 0)
		}

		sub := models.Subscription{
			UserID:    user.ID,
			Status:    models.SubscriptionStatusActive,
			StartDate: start,
			EndDate:   end,
			Amount:    float64(months) * 9.99,
			Notes:     "seeded",
		}
		if err := s.db.Create(&sub).Error; err != nil {
			return count, err
		}

		invoice := models.Invoice{
			SubscriptionID: sub.ID,
			UserID:         user.ID,
			InvoiceNumber:  fmt.Sprintf("INV-%d-%d", start.UnixMilli(), user.ID),
			Amount:         sub.Amount,
			Status:         models.InvoiceStatusPaid,
		}
		if err := s.db.Create(&invoice).Error; err != nil {
			return count, err
		}

		user.IsSubscribed = true
		user.SubscriptionStart = &start
		user.SubscriptionEnd = &end
		if err := s.db.Save(user).Error; err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (s *Seeder) createPosts(users []models.User, n int) (int, error) {
	for i := 0; i < n; i++ {
		owner := users[gofakeit.Number(0, len(users)-1)]
		post := models.Post{
			UserID:      owner.ID,
			Title:       gofakeit.ProductName(),
			Content:     gofakeit.Paragraph(1, 3, 12, " "),
			ContactInfo: fmt.Sprintf("%s / %s", gofakeit.Email(), gofakeit.Phone()),
			Views:       int64(gofakeit.Number(0, 500)),
		}
		if err := s.db.Create(&post).Error; err != nil {
			return i, err
		}
		// A few hidden listings for the admin moderation view.
		if i%10 == 9 {
			if err := s.db.Model(&post).Update("is_published", false).Error; err != nil {
				return i, err
			}
		}
	}
	return n, nil
}

func (s *Seeder) createRequests(users []models.User) (int, error) {
	count := 0
	statuses := []models.SubscriptionRequestStatus{
		models.SubscriptionRequestStatusPending,
		models.SubscriptionRequestStatusApproved,
		models.SubscriptionRequestStatusRejected,
	}
	for i := range users {
		user := &users[i]
		if user.Role == models.RoleAdmin || user.IsSubscribed || i%4 != 2 {
			continue
		}

		req := models.SubscriptionRequest{
			UserID:  user.ID,
			Plan:    gofakeit.RandomString([]string{"monthly", "yearly"}),
			Message: gofakeit.Sentence(8),
		}
		if err := s.db.Create(&req).Error; err != nil {
			return count, err
		}
		if status := statuses[count%len(statuses)]; status != models.SubscriptionRequestStatusPending {
			if err := s.db.Model(&req).Update("status", status).Error; err != nil {
				return count, err
			}
		}
		count++
	}
	return count, nil
}
