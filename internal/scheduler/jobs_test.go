package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"glowshot.app/glowshotcore/internal/clock"
	"glowshot.app/glowshotcore/internal/model"
	"glowshot.app/glowshotcore/internal/service"
)

func testClock(t *testing.T) *clock.Clock {
	t.Helper()
	clk, err := clock.New("Europe/Moscow")
	if err != nil {
		t.Fatalf("clock.New() error = %v", err)
	}
	return clk
}

type stubLifecycle struct {
	archiveCalls int
	archiveErr   error
}

func (s *stubLifecycle) SubmitPhoto(ctx context.Context, userID uuid.UUID, file io.Reader, fileName, title string) (*model.Photo, error) {
	return nil, nil
}

func (s *stubLifecycle) GetPhoto(ctx context.Context, id uuid.UUID) (*model.Photo, error) {
	return nil, nil
}

func (s *stubLifecycle) ArchiveExpired(ctx context.Context) (int64, error) {
	s.archiveCalls++
	return 0, s.archiveErr
}

func (s *stubLifecycle) DeletePhoto(ctx context.Context, id uuid.UUID, reason string) error {
	return nil
}

type stubRanking struct {
	throughDays []string
	err         error
}

func (s *stubRanking) Finalize(ctx context.Context, day string) (*service.DailyResult, error) {
	return nil, nil
}

func (s *stubRanking) FinalizePending(ctx context.Context, throughDay string) (int, error) {
	s.throughDays = append(s.throughDays, throughDay)
	return 0, s.err
}

func (s *stubRanking) GetResults(ctx context.Context, day string) (*service.DailyResult, error) {
	return nil, nil
}

func (s *stubRanking) Recap(ctx context.Context, day string) (*service.DailyRecap, error) {
	return nil, nil
}

type stubCredits struct {
	days []string
}

func (s *stubCredits) GrantDailyCredits(ctx context.Context, userID uuid.UUID, day string) (bool, error) {
	return false, nil
}

func (s *stubCredits) GrantDailyCreditsForActive(ctx context.Context, day string) (int, error) {
	s.days = append(s.days, day)
	return 0, nil
}

func (s *stubCredits) GetStats(ctx context.Context, userID uuid.UUID) (*model.UserStats, error) {
	return nil, nil
}

func (s *stubCredits) RegisterPendingReferral(ctx context.Context, invitedUserID uuid.UUID, code string) error {
	return nil
}

func (s *stubCredits) QualifyReferral(ctx context.Context, invitedUserID uuid.UUID, qualifiedAt time.Time) error {
	return nil
}

func (s *stubCredits) RewardReferral(ctx context.Context, invitedUserID, inviterUserID uuid.UUID, qualifiedAt time.Time) (bool, error) {
	return false, nil
}

func (s *stubCredits) CountRewardsByInviter(ctx context.Context, inviterID uuid.UUID) (int64, error) {
	return 0, nil
}

// At the scheduled 00:05 run the newest day the sweep may target must
// already be past its expiry, otherwise the day stays open forever:
// photos of day D live until just before the start of D+2, so
// yesterday is still open at that run and only D-2 and older qualify.
func TestFinalizeJobThroughDayIsExpired(t *testing.T) {
	clk := testClock(t)
	job := NewFinalizeJob(&stubLifecycle{}, &stubRanking{}, clk, "5 0 * * *")

	run := time.Date(2026, 2, 15, 0, 5, 0, 0, clk.Location())

	through := job.throughDay(run)
	if through != "2026-02-13" {
		t.Fatalf("throughDay(%v) = %q, want %q", run, through, "2026-02-13")
	}

	expiry, err := clk.ExpiryFor(through)
	if err != nil {
		t.Fatalf("ExpiryFor(%q) error = %v", through, err)
	}
	if !expiry.Before(run) {
		t.Errorf("photos of %s expire %v, after the %v run that targets the day", through, expiry, run)
	}

	// Yesterday's photos outlive this run and must not be targeted.
	yesterday := clk.CivilDay(run.AddDate(0, 0, -1))
	expiry, err = clk.ExpiryFor(yesterday)
	if err != nil {
		t.Fatalf("ExpiryFor(%q) error = %v", yesterday, err)
	}
	if expiry.Before(run) {
		t.Errorf("photos of %s expire %v, before the %v run; throughDay is too conservative", yesterday, expiry, run)
	}
}

func TestFinalizeJobExecute(t *testing.T) {
	clk := testClock(t)
	lifecycle := &stubLifecycle{}
	ranking := &stubRanking{}
	job := NewFinalizeJob(lifecycle, ranking, clk, "5 0 * * *")

	// Bracket the call so a midnight rollover mid-test cannot flake it.
	before := job.throughDay(clk.Now())
	if err := job.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	after := job.throughDay(clk.Now())

	if lifecycle.archiveCalls != 1 {
		t.Errorf("archive sweeps before finalize = %d, want 1", lifecycle.archiveCalls)
	}
	if len(ranking.throughDays) != 1 {
		t.Fatalf("FinalizePending calls = %d, want 1", len(ranking.throughDays))
	}
	if got := ranking.throughDays[0]; got != before && got != after {
		t.Errorf("sweep targeted %q, want %q", got, after)
	}
}

func TestFinalizeJobArchiveFailureStopsRun(t *testing.T) {
	lifecycle := &stubLifecycle{archiveErr: errors.New("db down")}
	ranking := &stubRanking{}
	job := NewFinalizeJob(lifecycle, ranking, testClock(t), "5 0 * * *")

	if err := job.Execute(context.Background()); err == nil {
		t.Fatal("Execute() = nil, want error")
	}
	if len(ranking.throughDays) != 0 {
		t.Errorf("finalize ran after failed archive sweep")
	}
}

func TestFinalizeJobPropagatesSweepError(t *testing.T) {
	ranking := &stubRanking{err: errors.New("db down")}
	job := NewFinalizeJob(&stubLifecycle{}, ranking, testClock(t), "5 0 * * *")

	if err := job.Execute(context.Background()); err == nil {
		t.Fatal("Execute() = nil, want error")
	}
}

func TestCreditsJobTargetsYesterday(t *testing.T) {
	clk := testClock(t)
	credits := &stubCredits{}
	job := NewCreditsJob(credits, clk, "10 0 * * *")

	before := clk.Yesterday()
	if err := job.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	after := clk.Yesterday()

	if len(credits.days) != 1 {
		t.Fatalf("grant sweeps = %d, want 1", len(credits.days))
	}
	if got := credits.days[0]; got != before && got != after {
		t.Errorf("grant targeted %q, want %q", got, after)
	}
}
