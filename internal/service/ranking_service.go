package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"glowshot.app/glowshotcore/internal/clock"
	"glowshot.app/glowshotcore/internal/config"
	"glowshot.app/glowshotcore/internal/model"
	"glowshot.app/glowshotcore/internal/repository"
	"glowshot.app/glowshotcore/pkg/apperror"
)

const (
	NotificationTypeDailyResult = "daily_result"
	NotificationTypeDailyRecap  = "daily_recap"
)

// RankedEntry is one leaderboard line of a finalized day.
type RankedEntry struct {
	Rank       int       `json:"rank"`
	PhotoID    uuid.UUID `json:"photo_id"`
	UserID     uuid.UUID `json:"user_id"`
	Title      string    `json:"title"`
	VotesCount int       `json:"votes_count"`
	SumScore   int       `json:"sum_score"`
	AvgScore   float64   `json:"avg_score"`
}

// DailyResult is the published outcome of a day.
type DailyResult struct {
	Day               string        `json:"day"`
	Entries           []RankedEntry `json:"entries"`
	ParticipantsCount int           `json:"participants_count"`
	TopThreshold      int           `json:"top_threshold"`
	AlreadyFinalized  bool          `json:"-"`
}

// DailyRecap is the admin summary of a finalized day.
type DailyRecap struct {
	Day               string        `json:"day"`
	ParticipantsCount int           `json:"participants_count"`
	TotalVotes        int           `json:"total_votes"`
	TopThreshold      int           `json:"top_threshold"`
	Top               []RankedEntry `json:"top"`
}

type RankingService interface {
	// Finalize computes the final ranking of a fully archived day at
	// most once. A repeated call returns the cached snapshot unchanged.
	Finalize(ctx context.Context, day string) (*DailyResult, error)
	// FinalizePending finalizes every day up to and including
	// throughDay that still lacks a published snapshot, so a missed or
	// failed run is caught up by the next one. Days with photos still
	// active are skipped, already-published days count as zero.
	FinalizePending(ctx context.Context, throughDay string) (int, error)
	// GetResults reads the published snapshot; ErrNotFound until the
	// day has been finalized.
	GetResults(ctx context.Context, day string) (*DailyResult, error)
	Recap(ctx context.Context, day string) (*DailyRecap, error)
}

type rankingService struct {
	photoRepo  repository.PhotoRepository
	resultRepo repository.ResultRepository
	userRepo   repository.UserRepository
	notifier   NotificationService
	clk        *clock.Clock
	cfg        *config.Config
}

func NewRankingService(photoRepo repository.PhotoRepository, resultRepo repository.ResultRepository, userRepo repository.UserRepository, notifier NotificationService, clk *clock.Clock, cfg *config.Config) RankingService {
	return &rankingService{
		photoRepo:  photoRepo,
		resultRepo: resultRepo,
		userRepo:   userRepo,
		notifier:   notifier,
		clk:        clk,
		cfg:        cfg,
	}
}

func (s *rankingService) Finalize(ctx context.Context, day string) (*DailyResult, error) {
	if _, err := s.clk.DayStart(day); err != nil {
		return nil, apperror.ErrInvalidInput
	}

	if cached, err := s.resultRepo.GetCache(ctx, day); err != nil {
		return nil, err
	} else if cached != nil {
		result, err := resultFromCache(cached)
		if err != nil {
			return nil, err
		}
		result.AlreadyFinalized = true
		return result, nil
	}

	active, err := s.photoRepo.CountActiveByDay(ctx, day)
	if err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, apperror.ErrTooEarly
	}

	// Query order is the final order: sum_score desc, votes_count desc,
	// created_at asc. Ties get distinct dense ranks via the
	// submission-time tiebreak, so the assignment is deterministic.
	photos, err := s.photoRepo.ListForRanking(ctx, day)
	if err != nil {
		return nil, err
	}

	entries := make([]RankedEntry, 0, len(photos))
	ranks := make([]model.ResultRank, 0, len(photos))
	for i, p := range photos {
		entries = append(entries, RankedEntry{
			Rank:       i + 1,
			PhotoID:    p.ID,
			UserID:     p.UserID,
			Title:      p.Title,
			VotesCount: p.VotesCount,
			SumScore:   p.SumScore,
			AvgScore:   p.AvgScore,
		})
		ranks = append(ranks, model.ResultRank{
			PhotoID:   p.ID,
			SubmitDay: day,
			UserID:    p.UserID,
			FinalRank: i + 1,
		})
	}

	if err := s.resultRepo.InsertRanks(ctx, ranks); err != nil {
		return nil, err
	}

	result := &DailyResult{
		Day:               day,
		Entries:           entries,
		ParticipantsCount: len(entries),
		TopThreshold:      s.topThreshold(entries),
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	cache, created, err := s.resultRepo.CreateCache(ctx, &model.DailyResultsCache{
		SubmitDay:         day,
		Payload:           string(payload),
		ParticipantsCount: result.ParticipantsCount,
		TopThreshold:      result.TopThreshold,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		// a concurrent finalize won; its snapshot is the published one
		existing, err := resultFromCache(cache)
		if err != nil {
			return nil, err
		}
		existing.AlreadyFinalized = true
		return existing, nil
	}

	log.Printf("🏆 Day %s finalized: %d participants, top threshold %d", day, result.ParticipantsCount, result.TopThreshold)

	if err := s.enqueueResultNotifications(ctx, result); err != nil {
		// the day is finalized either way; dispatch is recoverable
		log.Printf("failed to enqueue result notifications for %s: %v", day, err)
	}
	if err := s.enqueueRecapNotifications(ctx, result); err != nil {
		log.Printf("failed to enqueue recap notifications for %s: %v", day, err)
	}

	return result, nil
}

func (s *rankingService) FinalizePending(ctx context.Context, throughDay string) (int, error) {
	if _, err := s.clk.DayStart(throughDay); err != nil {
		return 0, apperror.ErrInvalidInput
	}

	days, err := s.photoRepo.ListUnfinalizedDays(ctx, throughDay)
	if err != nil {
		return 0, err
	}

	finalized := 0
	for _, day := range days {
		result, err := s.Finalize(ctx, day)
		if errors.Is(err, apperror.ErrTooEarly) {
			log.Printf("finalize for %s skipped: photos still active", day)
			continue
		}
		if err != nil {
			return finalized, err
		}
		if !result.AlreadyFinalized {
			finalized++
		}
	}
	return finalized, nil
}

func (s *rankingService) GetResults(ctx context.Context, day string) (*DailyResult, error) {
	cached, err := s.resultRepo.GetCache(ctx, day)
	if err != nil {
		return nil, err
	}
	if cached == nil {
		return nil, apperror.ErrNotFound
	}
	return resultFromCache(cached)
}

func (s *rankingService) Recap(ctx context.Context, day string) (*DailyRecap, error) {
	result, err := s.GetResults(ctx, day)
	if err != nil {
		return nil, err
	}

	totalVotes := 0
	for _, e := range result.Entries {
		totalVotes += e.VotesCount
	}

	topN := s.cfg.TopN
	if topN > len(result.Entries) {
		topN = len(result.Entries)
	}

	return &DailyRecap{
		Day:               result.Day,
		ParticipantsCount: result.ParticipantsCount,
		TotalVotes:        totalVotes,
		TopThreshold:      result.TopThreshold,
		Top:               result.Entries[:topN],
	}, nil
}

// topThreshold is the sum_score of the lowest top-tier photo: rank within
// TopN and enough votes to qualify. Zero when nobody qualifies.
func (s *rankingService) topThreshold(entries []RankedEntry) int {
	threshold := 0
	for _, e := range entries {
		if e.Rank > s.cfg.TopN {
			break
		}
		if e.VotesCount >= s.cfg.MinVotesForTop {
			threshold = e.SumScore
		}
	}
	return threshold
}

func (s *rankingService) enqueueResultNotifications(ctx context.Context, result *DailyResult) error {
	if len(result.Entries) == 0 {
		return nil
	}

	now := s.clk.Now()
	ns := make([]model.Notification, 0, len(result.Entries))
	for _, e := range result.Entries {
		body, err := json.Marshal(map[string]interface{}{
			"day":           result.Day,
			"photo_id":      e.PhotoID,
			"rank":          e.Rank,
			"participants":  result.ParticipantsCount,
			"votes_count":   e.VotesCount,
			"avg_score":     e.AvgScore,
			"top_threshold": result.TopThreshold,
		})
		if err != nil {
			return err
		}
		ns = append(ns, model.Notification{
			UserID:   e.UserID,
			Type:     NotificationTypeDailyResult,
			Payload:  string(body),
			RunAfter: now.Add(jitter(s.cfg.NotifyJitterMax)),
			Status:   model.NotificationPending,
		})
	}

	if err := s.notifier.EnqueueBatch(ctx, ns); err != nil {
		return err
	}
	if err := s.resultRepo.MarkNotified(ctx, result.Day, now); err != nil {
		return err
	}

	log.Printf("📨 Enqueued %d result notifications for %s", len(ns), result.Day)
	return nil
}

// enqueueRecapNotifications sends every admin a compact summary of the
// finalized day. Delivered immediately, no jitter: admins expect the
// recap right after midnight.
func (s *rankingService) enqueueRecapNotifications(ctx context.Context, result *DailyResult) error {
	admins, err := s.userRepo.ListAdmins(ctx)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		return nil
	}

	totalVotes := 0
	for _, e := range result.Entries {
		totalVotes += e.VotesCount
	}
	body, err := json.Marshal(map[string]interface{}{
		"day":           result.Day,
		"participants":  result.ParticipantsCount,
		"total_votes":   totalVotes,
		"top_threshold": result.TopThreshold,
	})
	if err != nil {
		return err
	}

	now := s.clk.Now()
	ns := make([]model.Notification, 0, len(admins))
	for _, admin := range admins {
		ns = append(ns, model.Notification{
			UserID:   admin.ID,
			Type:     NotificationTypeDailyRecap,
			Payload:  string(body),
			RunAfter: now,
			Status:   model.NotificationPending,
		})
	}
	return s.notifier.EnqueueBatch(ctx, ns)
}

// jitter spreads deliveries uniformly within [0, max) so the finalize of
// a big day does not spike the external messaging API.
func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

func resultFromCache(cache *model.DailyResultsCache) (*DailyResult, error) {
	var result DailyResult
	if err := json.Unmarshal([]byte(cache.Payload), &result); err != nil {
		return nil, fmt.Errorf("corrupt results cache for %s: %w", cache.SubmitDay, err)
	}
	return &result, nil
}
