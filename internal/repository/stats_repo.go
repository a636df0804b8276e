package repository

import (
	"context"

	"github.com/google/uuid"
	"glowshot.app/glowshotcore/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StatsRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.UserStats, error)
	AddShowTokens(ctx context.Context, userID uuid.UUID, amount int) error
	AddCredits(ctx context.Context, userID uuid.UUID, amount int) error
	// GrantDailyCredits is guarded by last_daily_grant_day: the first
	// call for a day grants and moves the guard, later calls report
	// already granted.
	GrantDailyCredits(ctx context.Context, userID uuid.UUID, day string, amount int) (bool, error)
	// UserIDsActiveOn returns users whose last recorded vote day is the
	// given day (the cohort the daily grant sweep iterates).
	UserIDsActiveOn(ctx context.Context, day string) ([]uuid.UUID, error)

	CreatePendingReferral(ctx context.Context, ref *model.PendingReferral) error
	GetPendingReferral(ctx context.Context, invitedUserID uuid.UUID) (*model.PendingReferral, error)
	DeletePendingReferral(ctx context.Context, invitedUserID uuid.UUID) error
	// CreateReferralReward inserts at most one reward per invited user;
	// reports whether this call was the one that inserted it.
	CreateReferralReward(ctx context.Context, reward *model.ReferralReward) (bool, error)
	CountRewardsByInviter(ctx context.Context, inviterID uuid.UUID) (int64, error)
}

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.UserStats, error) {
	var stats model.UserStats
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error
	if err == gorm.ErrRecordNotFound {
		// lazily-created satellite: absent row reads as zero stats
		return &model.UserStats{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *statsRepository) AddShowTokens(ctx context.Context, userID uuid.UUID, amount int) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"show_tokens":     gorm.Expr("user_stats.show_tokens + ?", amount),
			"last_updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&model.UserStats{UserID: userID, ShowTokens: amount}).Error
}

func (r *statsRepository) AddCredits(ctx context.Context, userID uuid.UUID, amount int) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"credits":         gorm.Expr("user_stats.credits + ?", amount),
			"last_updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&model.UserStats{UserID: userID, Credits: amount}).Error
}

func (r *statsRepository) GrantDailyCredits(ctx context.Context, userID uuid.UUID, day string, amount int) (bool, error) {
	var granted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// make sure the satellite row exists before the guarded update
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&model.UserStats{UserID: userID}).Error; err != nil {
			return err
		}

		res := tx.Model(&model.UserStats{}).
			Where("user_id = ? AND (last_daily_grant_day IS NULL OR last_daily_grant_day <> ?)", userID, day).
			Updates(map[string]interface{}{
				"credits":              gorm.Expr("credits + ?", amount),
				"last_daily_grant_day": day,
			})
		if res.Error != nil {
			return res.Error
		}
		granted = res.RowsAffected > 0
		return nil
	})
	return granted, err
}

func (r *statsRepository) UserIDsActiveOn(ctx context.Context, day string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.UserStats{}).
		Where("last_vote_day = ?", day).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *statsRepository) CreatePendingReferral(ctx context.Context, ref *model.PendingReferral) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(ref).Error
}

func (r *statsRepository) GetPendingReferral(ctx context.Context, invitedUserID uuid.UUID) (*model.PendingReferral, error) {
	var ref model.PendingReferral
	err := r.db.WithContext(ctx).Where("invited_user_id = ?", invitedUserID).First(&ref).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *statsRepository) DeletePendingReferral(ctx context.Context, invitedUserID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("invited_user_id = ?", invitedUserID).
		Delete(&model.PendingReferral{}).Error
}

func (r *statsRepository) CreateReferralReward(ctx context.Context, reward *model.ReferralReward) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(reward)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *statsRepository) CountRewardsByInviter(ctx context.Context, inviterID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ReferralReward{}).
		Where("inviter_user_id = ?", inviterID).
		Count(&count).Error
	return count, err
}
