package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"glowshot.app/glowshotcore/internal/clock"
	"glowshot.app/glowshotcore/internal/config"
	"glowshot.app/glowshotcore/internal/model"
	"glowshot.app/glowshotcore/internal/repository"
	"glowshot.app/glowshotcore/pkg/apperror"
	"gorm.io/gorm"
)

const (
	NotificationTypeReferralReward = "referral_reward"

	rewardTypeReferral    = "referral"
	rewardVersionReferral = 1
)

type CreditsService interface {
	// GrantDailyCredits is safe under at-least-once invocation: the
	// last_daily_grant_day guard makes every call after the first a
	// no-op for that day.
	GrantDailyCredits(ctx context.Context, userID uuid.UUID, day string) (bool, error)
	// GrantDailyCreditsForActive sweeps all users who voted on the day.
	GrantDailyCreditsForActive(ctx context.Context, day string) (int, error)
	GetStats(ctx context.Context, userID uuid.UUID) (*model.UserStats, error)

	// RegisterPendingReferral remembers which code a new user arrived
	// with until they qualify.
	RegisterPendingReferral(ctx context.Context, invitedUserID uuid.UUID, code string) error
	// QualifyReferral turns a pending referral into the one-time reward
	// once the invited user has cast their first vote.
	QualifyReferral(ctx context.Context, invitedUserID uuid.UUID, qualifiedAt time.Time) error
	// RewardReferral grants at most one reward per invited user ever.
	RewardReferral(ctx context.Context, invitedUserID, inviterUserID uuid.UUID, qualifiedAt time.Time) (bool, error)
	CountRewardsByInviter(ctx context.Context, inviterID uuid.UUID) (int64, error)
}

type creditsService struct {
	statsRepo repository.StatsRepository
	userRepo  repository.UserRepository
	notifier  NotificationService
	clk       *clock.Clock
	cfg       *config.Config
}

func NewCreditsService(statsRepo repository.StatsRepository, userRepo repository.UserRepository, notifier NotificationService, clk *clock.Clock, cfg *config.Config) CreditsService {
	return &creditsService{
		statsRepo: statsRepo,
		userRepo:  userRepo,
		notifier:  notifier,
		clk:       clk,
		cfg:       cfg,
	}
}

func (s *creditsService) GrantDailyCredits(ctx context.Context, userID uuid.UUID, day string) (bool, error) {
	if _, err := s.clk.DayStart(day); err != nil {
		return false, apperror.ErrInvalidInput
	}
	return s.statsRepo.GrantDailyCredits(ctx, userID, day, s.cfg.DailyCreditAmount)
}

func (s *creditsService) GrantDailyCreditsForActive(ctx context.Context, day string) (int, error) {
	ids, err := s.statsRepo.UserIDsActiveOn(ctx, day)
	if err != nil {
		return 0, err
	}

	granted := 0
	for _, id := range ids {
		ok, err := s.statsRepo.GrantDailyCredits(ctx, id, day, s.cfg.DailyCreditAmount)
		if err != nil {
			log.Printf("daily credit grant failed for user %s: %v", id, err)
			continue
		}
		if ok {
			granted++
		}
	}

	if granted > 0 {
		log.Printf("💰 Granted daily credits to %d users for %s", granted, day)
	}
	return granted, nil
}

func (s *creditsService) GetStats(ctx context.Context, userID uuid.UUID) (*model.UserStats, error) {
	return s.statsRepo.GetByUserID(ctx, userID)
}

func (s *creditsService) RegisterPendingReferral(ctx context.Context, invitedUserID uuid.UUID, code string) error {
	inviter, err := s.userRepo.FindByReferralCode(ctx, code)
	if err == gorm.ErrRecordNotFound {
		return apperror.ErrNotFound
	}
	if err != nil {
		return err
	}
	if inviter.ID == invitedUserID {
		return apperror.ErrInvalidInput
	}

	return s.statsRepo.CreatePendingReferral(ctx, &model.PendingReferral{
		InvitedUserID: invitedUserID,
		ReferralCode:  code,
	})
}

func (s *creditsService) QualifyReferral(ctx context.Context, invitedUserID uuid.UUID, qualifiedAt time.Time) error {
	pending, err := s.statsRepo.GetPendingReferral(ctx, invitedUserID)
	if err != nil {
		return err
	}
	if pending == nil {
		return nil
	}

	inviter, err := s.userRepo.FindByReferralCode(ctx, pending.ReferralCode)
	if err == gorm.ErrRecordNotFound {
		// inviter gone or code rotated; drop the stale pending row
		return s.statsRepo.DeletePendingReferral(ctx, invitedUserID)
	}
	if err != nil {
		return err
	}

	if _, err := s.RewardReferral(ctx, invitedUserID, inviter.ID, qualifiedAt); err != nil {
		return err
	}
	return s.statsRepo.DeletePendingReferral(ctx, invitedUserID)
}

func (s *creditsService) RewardReferral(ctx context.Context, invitedUserID, inviterUserID uuid.UUID, qualifiedAt time.Time) (bool, error) {
	if invitedUserID == inviterUserID {
		return false, apperror.ErrInvalidInput
	}

	created, err := s.statsRepo.CreateReferralReward(ctx, &model.ReferralReward{
		InvitedUserID:  invitedUserID,
		InviterUserID:  inviterUserID,
		RewardType:     rewardTypeReferral,
		RewardVersion:  rewardVersionReferral,
		CreditsGranted: s.cfg.ReferralCredits,
		QualifiedAt:    qualifiedAt,
	})
	if err != nil {
		return false, err
	}
	if !created {
		return false, nil
	}

	// Both sides get the credit bonus. Failures here are logged, not
	// rolled back: the reward row is the source of truth and a repair
	// sweep can reconcile credits from it.
	if err := s.statsRepo.AddCredits(ctx, inviterUserID, s.cfg.ReferralCredits); err != nil {
		log.Printf("failed to credit inviter %s: %v", inviterUserID, err)
	}
	if err := s.statsRepo.AddCredits(ctx, invitedUserID, s.cfg.ReferralCredits); err != nil {
		log.Printf("failed to credit invited user %s: %v", invitedUserID, err)
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"invited_user_id": invitedUserID,
		"credits":         s.cfg.ReferralCredits,
	})
	if err := s.notifier.Enqueue(ctx, inviterUserID, NotificationTypeReferralReward, string(payload), s.clk.Now()); err != nil {
		log.Printf("failed to enqueue referral notification for %s: %v", inviterUserID, err)
	}

	log.Printf("🤝 Referral reward granted: inviter %s, invited %s", inviterUserID, invitedUserID)
	return true, nil
}

func (s *creditsService) CountRewardsByInviter(ctx context.Context, inviterID uuid.UUID) (int64, error) {
	return s.statsRepo.CountRewardsByInviter(ctx, inviterID)
}
