package scheduler

import (
	"context"
	"log"
	"time"

	"glowshot.app/glowshotcore/internal/clock"
	"glowshot.app/glowshotcore/internal/service"
)

// ArchiveJob sweeps overdue active photos into archived state.
type ArchiveJob struct {
	lifecycle service.LifecycleService
	schedule  string
}

func NewArchiveJob(lifecycle service.LifecycleService, schedule string) *ArchiveJob {
	return &ArchiveJob{lifecycle: lifecycle, schedule: schedule}
}

func (j *ArchiveJob) GetName() string     { return "archive-expired" }
func (j *ArchiveJob) GetSchedule() string { return j.schedule }

func (j *ArchiveJob) Execute(ctx context.Context) error {
	_, err := j.lifecycle.ArchiveExpired(ctx)
	return err
}

// FinalizeJob publishes the rankings of every fully expired day that
// has none yet. Photos of day D stay active until just before the start
// of D+2, so the newest day this job can close at a given run is the
// day before yesterday; older days missed by earlier runs are caught up
// in the same sweep. It archives first so a sweep lagging behind the
// clock cannot leave a day half-open.
type FinalizeJob struct {
	lifecycle service.LifecycleService
	ranking   service.RankingService
	clk       *clock.Clock
	schedule  string
}

func NewFinalizeJob(lifecycle service.LifecycleService, ranking service.RankingService, clk *clock.Clock, schedule string) *FinalizeJob {
	return &FinalizeJob{
		lifecycle: lifecycle,
		ranking:   ranking,
		clk:       clk,
		schedule:  schedule,
	}
}

func (j *FinalizeJob) GetName() string     { return "finalize-daily-results" }
func (j *FinalizeJob) GetSchedule() string { return j.schedule }

func (j *FinalizeJob) Execute(ctx context.Context) error {
	if _, err := j.lifecycle.ArchiveExpired(ctx); err != nil {
		return err
	}

	through := j.throughDay(j.clk.Now())
	finalized, err := j.ranking.FinalizePending(ctx, through)
	if err != nil {
		return err
	}
	if finalized > 0 {
		log.Printf("🏆 Finalized %d day(s) through %s", finalized, through)
	}
	return nil
}

// throughDay is the newest day whose photos are already expired at now:
// two civil days back, since day D expires just before the start of D+2.
func (j *FinalizeJob) throughDay(now time.Time) string {
	return j.clk.CivilDay(now.AddDate(0, 0, -2))
}

// CreditsJob grants the daily credit allowance to everyone who voted
// the previous day.
type CreditsJob struct {
	credits  service.CreditsService
	clk      *clock.Clock
	schedule string
}

func NewCreditsJob(credits service.CreditsService, clk *clock.Clock, schedule string) *CreditsJob {
	return &CreditsJob{credits: credits, clk: clk, schedule: schedule}
}

func (j *CreditsJob) GetName() string     { return "daily-credits" }
func (j *CreditsJob) GetSchedule() string { return j.schedule }

func (j *CreditsJob) Execute(ctx context.Context) error {
	_, err := j.credits.GrantDailyCreditsForActive(ctx, j.clk.Yesterday())
	return err
}
