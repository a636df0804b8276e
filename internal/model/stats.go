package model

import (
	"time"

	"github.com/google/uuid"
)

// UserStats is a 1:1 satellite of User, created lazily the first time a
// user submits a photo, votes, or triggers a referral event. Daily vote
// counters are reset whenever LastVoteDay moves forward;
// LastDailyGrantDay is the idempotency guard for the daily credit grant.
type UserStats struct {
	UserID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	User                     *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Credits                  int       `gorm:"default:0" json:"credits"`
	ShowTokens               int       `gorm:"default:0" json:"show_tokens"`
	VotesGivenToday          int       `gorm:"default:0" json:"votes_given_today"`
	VotesGivenHappyHourToday int       `gorm:"default:0" json:"votes_given_happyhour_today"`
	LastVoteDay              string    `gorm:"type:varchar(10)" json:"last_vote_day"`
	LastDailyGrantDay        string    `gorm:"type:varchar(10)" json:"last_daily_grant_day"`
	PublicPortfolio          bool      `gorm:"default:false" json:"public_portfolio"`
	LastUpdatedAt            time.Time `gorm:"autoUpdateTime" json:"last_updated_at"`
}
