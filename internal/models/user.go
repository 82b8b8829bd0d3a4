// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account on the marketplace.
//
// IsSubscribed is a cached flag: it is reconciled lazily against
// SubscriptionEnd on gated access rather than by a background sweep, so a
// stale true value is possible until the next gated request.
type User struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Username          string         `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Email             string         `gorm:"size:120;uniqueIndex;not null" json:"email"`
	Password          string         `gorm:"not null" json:"-"`
	FullName          string         `gorm:"size:120" json:"full_name"`
	Role              string         `gorm:"type:varchar(10);not null;default:'user'" json:"role"`
	IsSubscribed      bool           `gorm:"not null;default:false" json:"is_subscribed"`
	SubscriptionStart *time.Time     `json:"subscription_start"`
	SubscriptionEnd   *time.Time     `json:"subscription_end"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
	Posts             []Post         `gorm:"foreignKey:UserID" json:"posts,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DisplayName returns the full name when set, falling back to the username.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
