package model

import (
	"time"

	"github.com/google/uuid"
)

// PendingReferral remembers which referral code a new user arrived with,
// until the user qualifies (casts their first vote).
type PendingReferral struct {
	InvitedUserID uuid.UUID `gorm:"type:uuid;primaryKey" json:"invited_user_id"`
	ReferralCode  string    `gorm:"type:varchar(32);not null" json:"referral_code"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ReferralReward records the one-time reward for an invited user. The
// primary key on InvitedUserID enforces at most one reward ever,
// regardless of retries.
type ReferralReward struct {
	InvitedUserID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"invited_user_id"`
	InviterUserID  uuid.UUID `gorm:"type:uuid;not null;index" json:"inviter_user_id"`
	RewardType     string    `gorm:"type:varchar(50);not null" json:"reward_type"`
	RewardVersion  int       `gorm:"default:1" json:"reward_version"`
	CreditsGranted int       `gorm:"default:0" json:"credits_granted"`
	QualifiedAt    time.Time `gorm:"not null" json:"qualified_at"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
