package service

import (
	"context"
	"io"
	"log"

	"github.com/google/uuid"
	"glowshot.app/glowshotcore/internal/clock"
	"glowshot.app/glowshotcore/internal/config"
	"glowshot.app/glowshotcore/internal/model"
	"glowshot.app/glowshotcore/internal/repository"
	"glowshot.app/glowshotcore/pkg/apperror"
	"glowshot.app/glowshotcore/pkg/storage"
	"gorm.io/gorm"
)

type LifecycleService interface {
	// SubmitPhoto stores the image, stamps submit_day/expires_at in the
	// fixed zone and grants the submitter's show tokens.
	SubmitPhoto(ctx context.Context, userID uuid.UUID, file io.Reader, fileName, title string) (*model.Photo, error)
	GetPhoto(ctx context.Context, id uuid.UUID) (*model.Photo, error)
	// ArchiveExpired is the periodic sweep flipping overdue photos to
	// archived. Idempotent, safe under overlapping runs.
	ArchiveExpired(ctx context.Context) (int64, error)
	// DeletePhoto soft-deletes with a reason (moderation entry point).
	DeletePhoto(ctx context.Context, id uuid.UUID, reason string) error
}

type lifecycleService struct {
	photoRepo repository.PhotoRepository
	statsRepo repository.StatsRepository
	storage   storage.PhotoStorage
	clk       *clock.Clock
	cfg       *config.Config
}

func NewLifecycleService(photoRepo repository.PhotoRepository, statsRepo repository.StatsRepository, photoStorage storage.PhotoStorage, clk *clock.Clock, cfg *config.Config) LifecycleService {
	return &lifecycleService{
		photoRepo: photoRepo,
		statsRepo: statsRepo,
		storage:   photoStorage,
		clk:       clk,
		cfg:       cfg,
	}
}

func (s *lifecycleService) SubmitPhoto(ctx context.Context, userID uuid.UUID, file io.Reader, fileName, title string) (*model.Photo, error) {
	now := s.clk.Now()
	day := s.clk.CivilDay(now)

	count, err := s.photoRepo.CountByUserAndDay(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	if count >= int64(s.cfg.SubmissionsPerDay) {
		return nil, apperror.ErrQuotaExceeded
	}

	fileURL, err := s.storage.UploadPhoto(ctx, file, fileName)
	if err != nil {
		return nil, err
	}

	expiresAt, err := s.clk.ExpiryFor(day)
	if err != nil {
		return nil, err
	}

	photo := &model.Photo{
		UserID:           userID,
		FileURL:          fileURL,
		Title:            title,
		SubmitDay:        day,
		ExpiresAt:        expiresAt,
		Status:           model.PhotoActive,
		DailyViewsBudget: s.cfg.DailyViewsBudget,
	}
	if err := s.photoRepo.Create(ctx, photo); err != nil {
		return nil, err
	}

	// Submissions earn show tokens, more during happy hour. Token grant
	// failure must not fail the upload.
	tokens := s.cfg.CreditShowsBase
	if s.clk.InBonusWindow(now) {
		tokens = s.cfg.CreditShowsHappy
	}
	if err := s.statsRepo.AddShowTokens(ctx, userID, tokens); err != nil {
		log.Printf("failed to grant %d show tokens to user %s: %v", tokens, userID, err)
	}

	log.Printf("📸 Photo %s submitted by %s (day %s, expires %s)", photo.ID, userID, day, expiresAt.Format("2006-01-02 15:04:05"))
	return photo, nil
}

func (s *lifecycleService) GetPhoto(ctx context.Context, id uuid.UUID) (*model.Photo, error) {
	photo, err := s.photoRepo.FindByID(ctx, id)
	if err == gorm.ErrRecordNotFound {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return photo, nil
}

func (s *lifecycleService) ArchiveExpired(ctx context.Context) (int64, error) {
	archived, err := s.photoRepo.ArchiveExpired(ctx, s.clk.Now())
	if err != nil {
		return 0, err
	}
	if archived > 0 {
		log.Printf("🗄️ Archived %d expired photos", archived)
	}
	return archived, nil
}

func (s *lifecycleService) DeletePhoto(ctx context.Context, id uuid.UUID, reason string) error {
	photo, err := s.GetPhoto(ctx, id)
	if err != nil {
		return err
	}
	if err := photo.SoftDelete(reason, s.clk.Now()); err != nil {
		return err
	}
	return s.photoRepo.Save(ctx, photo)
}
