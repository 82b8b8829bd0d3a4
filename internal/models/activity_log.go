package models

import "time"

// Activity actions recorded in the audit trail.
const (
	ActivityLogin               = "login"
	ActivityCreatePost          = "create_post"
	ActivitySubscriptionRequest = "subscription_request"
	ActivityUpdateSubscription  = "update_subscription"
	ActivityTogglePost          = "toggle_post_visibility"
)

// ActivityLog is an append-only audit record. Rows are never mutated or
// deleted.
type ActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action    string    `gorm:"size:50;not null;index" json:"action"`
	Details   string    `gorm:"type:text" json:"details"`
	CreatedAt time.Time `json:"created_at"`
}
