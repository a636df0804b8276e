package repository

import (
	"context"

	"glowshot.app/glowshotcore/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository interface {
	// Append writes the webhook record; a replayed order_id is a no-op.
	Append(ctx context.Context, p *model.Payment) error
	List(ctx context.Context, limit, offset int) ([]model.Payment, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Append(ctx context.Context, p *model.Payment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "order_id"}}, DoNothing: true}).
		Create(p).Error
}

func (r *paymentRepository) List(ctx context.Context, limit, offset int) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&payments).Error
	return payments, err
}
