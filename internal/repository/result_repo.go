package repository

import (
	"context"
	"time"

	"glowshot.app/glowshotcore/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResultRepository interface {
	// InsertRanks has ON CONFLICT DO NOTHING semantics over the
	// (photo_id, submit_day) primary key: a repeated finalize inserts
	// zero new rows.
	InsertRanks(ctx context.Context, ranks []model.ResultRank) error
	GetCache(ctx context.Context, day string) (*model.DailyResultsCache, error)
	// CreateCache writes the snapshot once; if a concurrent finalize won
	// the race the existing row is left untouched and returned with
	// created=false.
	CreateCache(ctx context.Context, cache *model.DailyResultsCache) (*model.DailyResultsCache, bool, error)
	MarkNotified(ctx context.Context, day string, at time.Time) error
}

type resultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) InsertRanks(ctx context.Context, ranks []model.ResultRank) error {
	if len(ranks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ranks).Error
}

func (r *resultRepository) GetCache(ctx context.Context, day string) (*model.DailyResultsCache, error) {
	var cache model.DailyResultsCache
	err := r.db.WithContext(ctx).Where("submit_day = ?", day).First(&cache).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cache, nil
}

func (r *resultRepository) CreateCache(ctx context.Context, cache *model.DailyResultsCache) (*model.DailyResultsCache, bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(cache)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		// lost the race, return what the winner wrote
		existing, err := r.GetCache(ctx, cache.SubmitDay)
		return existing, false, err
	}
	return cache, true, nil
}

func (r *resultRepository) MarkNotified(ctx context.Context, day string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.DailyResultsCache{}).
		Where("submit_day = ? AND notified_at IS NULL", day).
		Update("notified_at", at).Error
}
