package repository

import (
	"context"
	"time"

	"glowshot.app/glowshotcore/internal/model"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	CreateBatch(ctx context.Context, ns []model.Notification) error
	FindByID(ctx context.Context, id uint) (*model.Notification, error)
	// DequeueDue returns pending entries whose run_after has passed,
	// oldest first.
	DequeueDue(ctx context.Context, now time.Time, limit int) ([]model.Notification, error)
	MarkSent(ctx context.Context, id uint, at time.Time) error
	// Reschedule keeps the entry pending with bumped attempts and a new
	// run_after; MarkFailedPermanently parks it after the retry cap.
	Reschedule(ctx context.Context, id uint, lastError string, runAfter time.Time) error
	MarkFailedPermanently(ctx context.Context, id uint, lastError string) error
	CountByStatus(ctx context.Context, status model.NotificationStatus) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) CreateBatch(ctx context.Context, ns []model.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&ns).Error
}

func (r *notificationRepository) FindByID(ctx context.Context, id uint) (*model.Notification, error) {
	var n model.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) DequeueDue(ctx context.Context, now time.Time, limit int) ([]model.Notification, error) {
	var due []model.Notification
	err := r.db.WithContext(ctx).
		Where("status = ? AND run_after <= ?", model.NotificationPending, now).
		Order("run_after ASC").
		Limit(limit).
		Find(&due).Error
	return due, err
}

func (r *notificationRepository) MarkSent(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  model.NotificationSent,
			"sent_at": at,
		}).Error
}

func (r *notificationRepository) Reschedule(ctx context.Context, id uint, lastError string, runAfter time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastError,
			"run_after":  runAfter,
		}).Error
}

func (r *notificationRepository) MarkFailedPermanently(ctx context.Context, id uint, lastError string) error {
	return r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.NotificationFailed,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastError,
		}).Error
}

func (r *notificationRepository) CountByStatus(ctx context.Context, status model.NotificationStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
