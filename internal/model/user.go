package model

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity anchor for photos, votes and stats. Registration
// and profile management happen in the bot layer; the core only keeps
// what its foreign keys and referral resolution need.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username     string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	IsAdmin      bool      `gorm:"default:false" json:"is_admin"`
	ReferralCode *string   `gorm:"type:varchar(32);uniqueIndex" json:"referral_code,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
