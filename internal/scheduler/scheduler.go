package scheduler

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// Job is a named unit of scheduled work. Jobs with an empty schedule
// are registered for on-demand runs only.
type Job interface {
	GetName() string
	GetSchedule() string
	Execute(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	jobs []Job
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		jobs: make([]Job, 0),
	}
}

func (s *Scheduler) RegisterJob(job Job) {
	s.jobs = append(s.jobs, job)

	schedule := job.GetSchedule()
	if schedule != "" {
		_, err := s.cron.AddFunc(schedule, func() {
			log.Printf("⏰ [%s] Starting scheduled job...", job.GetName())
			if err := job.Execute(context.Background()); err != nil {
				log.Printf("❌ [%s] Job failed: %v", job.GetName(), err)
			} else {
				log.Printf("✅ [%s] Job completed successfully", job.GetName())
			}
		})

		if err != nil {
			log.Printf("⚠️ Failed to schedule job %s: %v", job.GetName(), err)
		} else {
			log.Printf("📅 [%s] Scheduled with cron: %s", job.GetName(), schedule)
		}
	} else {
		log.Printf("📝 [%s] Registered as on-demand job (no schedule)", job.GetName())
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("🚀 Scheduler started with %d registered jobs", len(s.jobs))
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("🛑 Scheduler stopped")
}

// RunJobByName triggers a job manually, outside its schedule.
func (s *Scheduler) RunJobByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.GetName() == name {
			log.Printf("🎯 [%s] Running on-demand execution...", name)
			return job.Execute(ctx)
		}
	}
	log.Printf("⚠️ Job with name '%s' not found", name)
	return nil
}

func (s *Scheduler) GetRegisteredJobs() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.GetName()
	}
	return names
}
