package models

import "time"

// SubscriptionStatus defines lifecycle states for a subscription period.
type SubscriptionStatus string

const (
	// SubscriptionStatusActive indicates the period is currently open.
	SubscriptionStatusActive SubscriptionStatus = "active"
	// SubscriptionStatusCancelled indicates the period was closed by an
	// admin deactivation or superseded by a new activation.
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// Subscription is one activation-to-cancellation period for a user. Rows are
// never deleted; superseded periods are marked cancelled, forming an
// append-only audit trail.
type Subscription struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	UserID      uint               `gorm:"not null;index" json:"user_id"`
	User        *User              `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Status      SubscriptionStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	StartDate   time.Time          `gorm:"not null" json:"start_date"`
	EndDate     time.Time          `gorm:"not null" json:"end_date"`
	Amount      float64            `gorm:"not null;default:0" json:"amount"`
	Notes       string             `gorm:"type:text" json:"notes"`
	InvoiceSent bool               `gorm:"not null;default:false" json:"invoice_sent"`
	Invoice     *Invoice           `gorm:"foreignKey:SubscriptionID" json:"invoice,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// InvoiceStatusPaid is the only invoice status the system issues: invoices
// record a payment that already happened out of band.
const InvoiceStatusPaid = "paid"

// Invoice is the billing record created when an admin activates a
// subscription with invoicing requested. SentAt is set only after the
// notification dispatch succeeds.
type Invoice struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"not null;index" json:"user_id"`
	SubscriptionID uint       `gorm:"not null;index" json:"subscription_id"`
	InvoiceNumber  string     `gorm:"size:64;uniqueIndex;not null" json:"invoice_number"`
	Amount         float64    `gorm:"not null;default:0" json:"amount"`
	Status         string     `gorm:"type:varchar(20);not null;default:'paid'" json:"status"`
	SentAt         *time.Time `json:"sent_at"`
	CreatedAt      time.Time  `json:"created_at"`
}
