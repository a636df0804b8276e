package repository

import (
	"context"

	"github.com/google/uuid"
	"glowshot.app/glowshotcore/internal/model"
	"glowshot.app/glowshotcore/pkg/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VoteRepository interface {
	// CastVote applies the whole acceptance in one transaction: the vote
	// row, the photo aggregates, the per-author daily counter and the
	// voter's daily stats. A duplicate (photo, voter) pair returns
	// apperror.ErrAlreadyExists and changes nothing. The quotas are
	// re-checked on the incremented counters inside the transaction, so
	// two concurrent votes racing past the service-level check cannot
	// both land at the limit; the loser rolls back with
	// apperror.ErrQuotaExceeded.
	CastVote(ctx context.Context, vote *model.Vote, authorID uuid.UUID, day string, happyHour bool, dailyQuota, perAuthorQuota int) error
	AuthorVotesToday(ctx context.Context, day string, voterID, authorID uuid.UUID) (int, error)
	// RecordView inserts the (photo, viewer) pair and bumps views_count
	// only on first view; repeats report false without side effects.
	RecordView(ctx context.Context, photoID, viewerID uuid.UUID) (bool, error)
}

type voteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) CastVote(ctx context.Context, vote *model.Vote, authorID uuid.UUID, day string, happyHour bool, dailyQuota, perAuthorQuota int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(vote)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.ErrAlreadyExists
		}

		// All expressions read the pre-update row, so avg is recomputed
		// from the same values the counters are bumped from.
		if err := tx.Model(&model.Photo{}).
			Where("id = ?", vote.PhotoID).
			Updates(map[string]interface{}{
				"votes_count": gorm.Expr("votes_count + 1"),
				"sum_score":   gorm.Expr("sum_score + ?", vote.Score),
				"avg_score":   gorm.Expr("(sum_score + ?) * 1.0 / (votes_count + 1)", vote.Score),
			}).Error; err != nil {
			return err
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "day"}, {Name: "voter_id"}, {Name: "author_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count": gorm.Expr("daily_author_votes.count + 1"),
			}),
		}).Create(&model.DailyAuthorVote{
			Day:      day,
			VoterID:  vote.VoterID,
			AuthorID: authorID,
			Count:    1,
		}).Error; err != nil {
			return err
		}

		var authorVotes model.DailyAuthorVote
		if err := tx.Where("day = ? AND voter_id = ? AND author_id = ?", day, vote.VoterID, authorID).
			First(&authorVotes).Error; err != nil {
			return err
		}
		if authorVotes.Count > perAuthorQuota {
			return apperror.ErrQuotaExceeded
		}

		happyInc := 0
		if happyHour {
			happyInc = 1
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"votes_given_today": gorm.Expr(
					"CASE WHEN user_stats.last_vote_day = ? THEN user_stats.votes_given_today + 1 ELSE 1 END", day),
				"votes_given_happyhour_today": gorm.Expr(
					"CASE WHEN user_stats.last_vote_day = ? THEN user_stats.votes_given_happyhour_today + ? ELSE ? END",
					day, happyInc, happyInc),
				"last_vote_day":   day,
				"last_updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
			}),
		}).Create(&model.UserStats{
			UserID:                   vote.VoterID,
			VotesGivenToday:          1,
			VotesGivenHappyHourToday: happyInc,
			LastVoteDay:              day,
		}).Error; err != nil {
			return err
		}

		var stats model.UserStats
		if err := tx.Where("user_id = ?", vote.VoterID).First(&stats).Error; err != nil {
			return err
		}
		if stats.VotesGivenToday > dailyQuota {
			return apperror.ErrQuotaExceeded
		}
		return nil
	})
}

func (r *voteRepository) AuthorVotesToday(ctx context.Context, day string, voterID, authorID uuid.UUID) (int, error) {
	var row model.DailyAuthorVote
	err := r.db.WithContext(ctx).
		Where("day = ? AND voter_id = ? AND author_id = ?", day, voterID, authorID).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Count, nil
}

func (r *voteRepository) RecordView(ctx context.Context, photoID, viewerID uuid.UUID) (bool, error) {
	var first bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.PhotoView{
			PhotoID:  photoID,
			ViewerID: viewerID,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		first = true
		return tx.Model(&model.Photo{}).
			Where("id = ?", photoID).
			UpdateColumn("views_count", gorm.Expr("views_count + 1")).Error
	})
	return first, err
}
