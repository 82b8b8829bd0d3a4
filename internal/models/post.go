package models

import (
	"time"

	"gorm.io/gorm"
)

// HiddenContactInfo is the marker substituted for a listing's contact info
// when the requester has no active subscription. A marker rather than an
// empty string, so clients can tell "hidden" apart from "none provided".
const HiddenContactInfo = "[Subscribe to view contact details]"

// Post is a marketplace listing. ContactInfo is the only field subject to
// subscription gating.
type Post struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Content     string         `gorm:"type:text;not null" json:"content"`
	ImageURL    string         `json:"image_url"`
	ContactInfo string         `gorm:"type:text" json:"contact_info"`
	Views       int64          `gorm:"not null;default:0" json:"views"`
	IsPublished bool           `gorm:"not null;default:true" json:"is_published"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	User        *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
