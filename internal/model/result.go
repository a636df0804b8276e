package model

import (
	"time"

	"github.com/google/uuid"
)

// ResultRank is written once per (photo, submit_day) when the day
// finalizes; the composite primary key makes finalize idempotent.
type ResultRank struct {
	PhotoID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"photo_id"`
	SubmitDay string    `gorm:"type:varchar(10);primaryKey;index" json:"submit_day"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	FinalRank int       `gorm:"not null" json:"final_rank"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// DailyResultsCache holds the published leaderboard snapshot for a day.
// The primary key on SubmitDay guarantees a day is finalized exactly
// once; a second finalize returns this row unchanged.
type DailyResultsCache struct {
	SubmitDay         string     `gorm:"type:varchar(10);primaryKey" json:"submit_day"`
	Payload           string     `gorm:"type:jsonb;not null" json:"payload"`
	ParticipantsCount int        `gorm:"default:0" json:"participants_count"`
	TopThreshold      int        `gorm:"default:0" json:"top_threshold"`
	NotifiedAt        *time.Time `json:"notified_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
