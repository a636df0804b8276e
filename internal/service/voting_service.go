package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"glowshot.app/glowshotcore/internal/clock"
	"glowshot.app/glowshotcore/internal/config"
	"glowshot.app/glowshotcore/internal/model"
	"glowshot.app/glowshotcore/internal/repository"
	"glowshot.app/glowshotcore/pkg/apperror"
	"gorm.io/gorm"
)

type VotingService interface {
	// CastVote validates every quota and precondition, then applies the
	// vote and all its counters as one transactional unit.
	CastVote(ctx context.Context, voterID, photoID uuid.UUID, score int) error
	// RecordView counts the first view per (photo, viewer); repeats
	// report false and change nothing.
	RecordView(ctx context.Context, viewerID, photoID uuid.UUID) (bool, error)
	// NextPhotoForViewer is the feed admission control: active photo,
	// not the viewer's own, not yet seen or voted, views budget left.
	NextPhotoForViewer(ctx context.Context, viewerID uuid.UUID) (*model.Photo, error)
}

type votingService struct {
	voteRepo       repository.VoteRepository
	photoRepo      repository.PhotoRepository
	statsRepo      repository.StatsRepository
	creditsService CreditsService
	redisClient    *redis.Client
	clk            *clock.Clock
	cfg            *config.Config
}

func NewVotingService(voteRepo repository.VoteRepository, photoRepo repository.PhotoRepository, statsRepo repository.StatsRepository, creditsService CreditsService, redisClient *redis.Client, clk *clock.Clock, cfg *config.Config) VotingService {
	return &votingService{
		voteRepo:       voteRepo,
		photoRepo:      photoRepo,
		statsRepo:      statsRepo,
		creditsService: creditsService,
		redisClient:    redisClient,
		clk:            clk,
		cfg:            cfg,
	}
}

func (s *votingService) CastVote(ctx context.Context, voterID, photoID uuid.UUID, score int) error {
	if score < s.cfg.MinScore || score > s.cfg.MaxScore {
		return apperror.ErrInvalidInput
	}

	photo, err := s.photoRepo.FindByID(ctx, photoID)
	if err == gorm.ErrRecordNotFound {
		return apperror.ErrNotFound
	}
	if err != nil {
		return err
	}
	if photo.Status != model.PhotoActive {
		return apperror.ErrPhotoNotActive
	}
	if photo.UserID == voterID {
		return apperror.ErrSelfVote
	}

	now := s.clk.Now()
	day := s.clk.CivilDay(now)

	// Fast-path quota checks; the acceptance transaction re-checks on
	// the incremented counters, so concurrent votes cannot slip past.
	stats, err := s.statsRepo.GetByUserID(ctx, voterID)
	if err != nil {
		return err
	}
	votesToday := 0
	if stats.LastVoteDay == day {
		votesToday = stats.VotesGivenToday
	}
	if votesToday >= s.cfg.DailyVoteQuota {
		return apperror.ErrQuotaExceeded
	}

	authorVotes, err := s.voteRepo.AuthorVotesToday(ctx, day, voterID, photo.UserID)
	if err != nil {
		return err
	}
	if authorVotes >= s.cfg.MaxVotesPerAuthorPerDay {
		return apperror.ErrQuotaExceeded
	}

	vote := &model.Vote{
		PhotoID: photoID,
		VoterID: voterID,
		Score:   score,
	}
	if err := s.voteRepo.CastVote(ctx, vote, photo.UserID, day, s.clk.InBonusWindow(now),
		s.cfg.DailyVoteQuota, s.cfg.MaxVotesPerAuthorPerDay); err != nil {
		return err
	}

	// First accepted vote qualifies a pending referral. Best effort,
	// the reward ledger itself is idempotent.
	go func() {
		if err := s.creditsService.QualifyReferral(context.Background(), voterID, now); err != nil &&
			!errors.Is(err, apperror.ErrAlreadyExists) {
			log.Printf("referral qualification for voter %s failed: %v", voterID, err)
		}
	}()

	return nil
}

func (s *votingService) RecordView(ctx context.Context, viewerID, photoID uuid.UUID) (bool, error) {
	// Cheap redis check in front of the unique constraint; the DB
	// constraint stays authoritative when redis is down or cold.
	viewKey := fmt.Sprintf("photo:user_view:%s:%s", photoID, viewerID)
	if s.redisClient != nil {
		exists, err := s.redisClient.Exists(ctx, viewKey).Result()
		if err == nil && exists == 1 {
			return false, nil
		}
	}

	first, err := s.voteRepo.RecordView(ctx, photoID, viewerID)
	if err != nil {
		return false, err
	}

	if s.redisClient != nil {
		if err := s.redisClient.SetEx(ctx, viewKey, "viewed", 48*time.Hour).Err(); err != nil {
			log.Printf("failed to cache view marker: %v", err)
		}
	}

	return first, nil
}

func (s *votingService) NextPhotoForViewer(ctx context.Context, viewerID uuid.UUID) (*model.Photo, error) {
	photo, err := s.photoRepo.NextForViewer(ctx, viewerID)
	if err == gorm.ErrRecordNotFound {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return photo, nil
}
