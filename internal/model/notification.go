package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is a durable outbox row. Internal state changes never
// call the delivery transport directly; they enqueue here and the
// dispatcher drains due rows.
type Notification struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      string             `gorm:"type:varchar(50);not null" json:"type"`
	Payload   string             `gorm:"type:jsonb" json:"payload"`
	RunAfter  time.Time          `gorm:"not null;index" json:"run_after"`
	Status    NotificationStatus `gorm:"type:varchar(16);default:pending;index" json:"status"`
	Attempts  int                `gorm:"default:0" json:"attempts"`
	LastError *string            `gorm:"type:text" json:"last_error,omitempty"`
	SentAt    *time.Time         `json:"sent_at,omitempty"`
	CreatedAt time.Time          `gorm:"autoCreateTime" json:"created_at"`
}
