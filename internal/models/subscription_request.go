package models

import "time"

// SubscriptionRequestStatus defines lifecycle states for user subscription requests.
type SubscriptionRequestStatus string

const (
	// SubscriptionRequestStatusPending indicates the request is awaiting review.
	SubscriptionRequestStatusPending SubscriptionRequestStatus = "pending"
	// SubscriptionRequestStatusApproved indicates an admin accepted the request.
	SubscriptionRequestStatusApproved SubscriptionRequestStatus = "approved"
	// SubscriptionRequestStatusRejected indicates an admin denied the request.
	SubscriptionRequestStatusRejected SubscriptionRequestStatus = "rejected"
)

// SubscriptionRequest is a user-submitted request for subscription access.
// Approval records administrative intent only; the actual grant happens via a
// separate admin activation.
type SubscriptionRequest struct {
	ID         uint                      `gorm:"primaryKey" json:"id"`
	UserID     uint                      `gorm:"not null;index" json:"user_id"`
	User       *User                     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Plan       string                    `gorm:"size:30;not null;default:'monthly'" json:"plan"`
	Message    string                    `gorm:"type:text" json:"message"`
	Status     SubscriptionRequestStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	AdminNotes string                    `gorm:"type:text" json:"admin_notes"`
	CreatedAt  time.Time                 `json:"created_at"`
	UpdatedAt  time.Time                 `json:"updated_at"`
}
