package model

import (
	"time"

	"github.com/google/uuid"
)

// Payment is a pure append-only record written by the payment webhook.
// No core logic depends on its contents beyond existence; admin tooling
// reads it.
type Payment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Provider  string    `gorm:"type:varchar(50)" json:"provider"`
	AmountRub int       `gorm:"default:0" json:"amount_rub"`
	OrderID   string    `gorm:"type:varchar(100);uniqueIndex" json:"order_id"`
	Status    string    `gorm:"type:varchar(20);default:pending" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
