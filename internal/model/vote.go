package model

import (
	"time"

	"github.com/google/uuid"
)

// Vote is immutable once created: the unique (photo_id, voter_id) index
// is the concurrency control for duplicate votes.
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PhotoID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_vote_photo_voter,priority:1" json:"photo_id"`
	Photo     *Photo    `gorm:"foreignKey:PhotoID;constraint:OnDelete:CASCADE" json:"-"`
	VoterID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_vote_photo_voter,priority:2;index" json:"voter_id"`
	Score     int       `gorm:"not null" json:"score"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// PhotoView counts each (photo, viewer) pair once; repeats are no-ops.
type PhotoView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PhotoID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_view_photo_viewer,priority:1" json:"photo_id"`
	Photo     *Photo    `gorm:"foreignKey:PhotoID;constraint:OnDelete:CASCADE" json:"-"`
	ViewerID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_view_photo_viewer,priority:2" json:"viewer_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// DailyAuthorVote caps how many votes a voter may put on one author's
// photos per day (anti-brigading).
type DailyAuthorVote struct {
	Day       string    `gorm:"type:varchar(10);primaryKey" json:"day"`
	VoterID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"voter_id"`
	AuthorID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"author_id"`
	Count     int       `gorm:"default:0" json:"count"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
