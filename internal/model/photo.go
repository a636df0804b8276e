package model

import (
	"time"

	"github.com/google/uuid"
	"glowshot.app/glowshotcore/pkg/apperror"
)

type PhotoStatus string

const (
	PhotoActive   PhotoStatus = "active"
	PhotoArchived PhotoStatus = "archived"
	PhotoDeleted  PhotoStatus = "deleted"
)

// Photo is the central lifecycle entity. It is created active, archived
// once its expiry passes, and only ever soft-deleted. Aggregate counters
// are maintained incrementally by the voting ledger inside the same
// transaction as the triggering vote.
type Photo struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User    *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	FileURL string    `gorm:"type:text;not null" json:"file_url"`
	Title   string    `gorm:"type:varchar(255)" json:"title"`

	// SubmitDay is the civil date in the fixed zone; ExpiresAt the
	// absolute instant just before the start of submit_day + 2.
	SubmitDay string    `gorm:"type:varchar(10);not null;index" json:"submit_day"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`

	Status        PhotoStatus `gorm:"type:varchar(16);default:active;index" json:"status"`
	ArchivedAt    *time.Time  `json:"archived_at,omitempty"`
	DeletedAt     *time.Time  `json:"deleted_at,omitempty"`
	DeletedReason *string     `gorm:"type:text" json:"deleted_reason,omitempty"`

	VotesCount       int     `gorm:"default:0" json:"votes_count"`
	SumScore         int     `gorm:"default:0" json:"sum_score"`
	AvgScore         float64 `gorm:"default:0" json:"avg_score"`
	ViewsCount       int     `gorm:"default:0" json:"views_count"`
	DailyViewsBudget int     `gorm:"default:100" json:"daily_views_budget"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Archive transitions active -> archived. The transition is monotonic:
// an archived or deleted photo is never reactivated here (restore is an
// explicit moderation action outside this core).
func (p *Photo) Archive(now time.Time) error {
	if p.Status != PhotoActive {
		return apperror.ErrPreconditionFailed
	}
	p.Status = PhotoArchived
	p.ArchivedAt = &now
	return nil
}

// SoftDelete marks a photo deleted with a reason. The row is never
// physically removed.
func (p *Photo) SoftDelete(reason string, now time.Time) error {
	if p.Status == PhotoDeleted {
		return apperror.ErrAlreadyExists
	}
	p.Status = PhotoDeleted
	p.DeletedAt = &now
	p.DeletedReason = &reason
	return nil
}
