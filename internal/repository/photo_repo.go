package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"glowshot.app/glowshotcore/internal/model"
	"gorm.io/gorm"
)

type PhotoRepository interface {
	Create(ctx context.Context, photo *model.Photo) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Photo, error)
	Save(ctx context.Context, photo *model.Photo) error
	CountByUserAndDay(ctx context.Context, userID uuid.UUID, day string) (int64, error)
	// ArchiveExpired flips every overdue active photo to archived in one
	// UPDATE. Safe to run concurrently and repeatedly.
	ArchiveExpired(ctx context.Context, now time.Time) (int64, error)
	CountActiveByDay(ctx context.Context, day string) (int64, error)
	// ListForRanking returns the non-deleted photos of a day in final
	// ranking order: sum_score desc, votes_count desc, created_at asc.
	ListForRanking(ctx context.Context, day string) ([]model.Photo, error)
	// NextForViewer picks a random active photo the viewer may still
	// rate: not their own, not yet viewed or voted, views budget left.
	NextForViewer(ctx context.Context, viewerID uuid.UUID) (*model.Photo, error)
	// ListUnfinalizedDays returns the days up to and including
	// throughDay that have photos but no published results snapshot,
	// oldest first. A day skipped by one sweep shows up in the next.
	ListUnfinalizedDays(ctx context.Context, throughDay string) ([]string, error)
}

type photoRepository struct {
	db *gorm.DB
}

func NewPhotoRepository(db *gorm.DB) PhotoRepository {
	return &photoRepository{db: db}
}

func (r *photoRepository) Create(ctx context.Context, photo *model.Photo) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

func (r *photoRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Photo, error) {
	var photo model.Photo
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&photo).Error; err != nil {
		return nil, err
	}
	return &photo, nil
}

func (r *photoRepository) Save(ctx context.Context, photo *model.Photo) error {
	return r.db.WithContext(ctx).Save(photo).Error
}

func (r *photoRepository) CountByUserAndDay(ctx context.Context, userID uuid.UUID, day string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Photo{}).
		Where("user_id = ? AND submit_day = ? AND status <> ?", userID, day, model.PhotoDeleted).
		Count(&count).Error
	return count, err
}

func (r *photoRepository) ArchiveExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Photo{}).
		Where("status = ? AND expires_at <= ?", model.PhotoActive, now).
		Updates(map[string]interface{}{
			"status":      model.PhotoArchived,
			"archived_at": now,
		})
	return res.RowsAffected, res.Error
}

func (r *photoRepository) CountActiveByDay(ctx context.Context, day string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Photo{}).
		Where("submit_day = ? AND status = ?", day, model.PhotoActive).
		Count(&count).Error
	return count, err
}

func (r *photoRepository) ListForRanking(ctx context.Context, day string) ([]model.Photo, error) {
	var photos []model.Photo
	err := r.db.WithContext(ctx).
		Where("submit_day = ? AND status <> ?", day, model.PhotoDeleted).
		Order("sum_score DESC, votes_count DESC, created_at ASC").
		Find(&photos).Error
	return photos, err
}

func (r *photoRepository) ListUnfinalizedDays(ctx context.Context, throughDay string) ([]string, error) {
	var days []string
	err := r.db.WithContext(ctx).Model(&model.Photo{}).
		Distinct("submit_day").
		Where("submit_day <= ? AND status <> ?", throughDay, model.PhotoDeleted).
		Where("NOT EXISTS (SELECT 1 FROM daily_results_caches WHERE daily_results_caches.submit_day = photos.submit_day)").
		Order("submit_day ASC").
		Pluck("submit_day", &days).Error
	return days, err
}

func (r *photoRepository) NextForViewer(ctx context.Context, viewerID uuid.UUID) (*model.Photo, error) {
	var photo model.Photo
	err := r.db.WithContext(ctx).
		Where("status = ?", model.PhotoActive).
		Where("user_id <> ?", viewerID).
		Where("views_count < daily_views_budget").
		Where("NOT EXISTS (SELECT 1 FROM votes WHERE votes.photo_id = photos.id AND votes.voter_id = ?)", viewerID).
		Where("NOT EXISTS (SELECT 1 FROM photo_views WHERE photo_views.photo_id = photos.id AND photo_views.viewer_id = ?)", viewerID).
		Order("RANDOM()").
		First(&photo).Error
	if err != nil {
		return nil, err
	}
	return &photo, nil
}
