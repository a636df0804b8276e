package service

import (
	"context"
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

// Deliverer hands a due notification to the outward transport. The
// default implementation publishes to Redis; the real messenger bot is
// an external consumer of either the pub/sub channel or the dispatch
// HTTP endpoints.
type Deliverer interface {
	Deliver(ctx context.Context, n *model.Notification) error
}

type NotificationService interface {
	Enqueue(ctx context.Context, userID uuid.UUID, notifType, payload string, runAfter time.Time) error
	EnqueueBatch(ctx context.Context, ns []model.Notification) error
	DequeueDue(ctx context.Context, limit int) ([]model.Notification, error)
	MarkSent(ctx context.Context, id uint) error
	// MarkFailed records the attempt and either reschedules with
	// backoff or parks the entry as permanently failed past the cap.
	MarkFailed(ctx context.Context, id uint, deliveryErr string) error
	PendingCount(ctx context.Context) (int64, error)
	// StartDispatcher runs the drain loop until ctx is cancelled.
	StartDispatcher(ctx context.Context)
}

type notificationService struct {
	repo      repository.NotificationRepository
	deliverer Deliverer
	clk       *clock.Clock
	cfg       *config.Config
}

func NewNotificationService(repo repository.NotificationRepository, deliverer Deliverer, clk *clock.Clock, cfg *config.Config) NotificationService {
	return &notificationService{
		repo:      repo,
		deliverer: deliverer,
		clk:       clk,
		cfg:       cfg,
	}
}

func (s *notificationService) Enqueue(ctx context.Context, userID uuid.UUID, notifType, payload string, runAfter time.Time) error {
	return s.repo.Create(ctx, &model.Notification{
		UserID:   userID,
		Type:     notifType,
		Payload:  payload,
		RunAfter: runAfter,
		Status:   model.NotificationPending,
	})
}

func (s *notificationService) EnqueueBatch(ctx context.Context, ns []model.Notification) error {
	return s.repo.CreateBatch(ctx, ns)
}

func (s *notificationService) DequeueDue(ctx context.Context, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = s.cfg.DispatchBatchSize
	}
	return s.repo.DequeueDue(ctx, s.clk.Now(), limit)
}

func (s *notificationService) MarkSent(ctx context.Context, id uint) error {
	return s.repo.MarkSent(ctx, id, s.clk.Now())
}

func (s *notificationService) MarkFailed(ctx context.Context, id uint, deliveryErr string) error {
	n, err := s.repo.FindByID(ctx, id)
	if err == gorm.ErrRecordNotFound {
		return apperror.ErrNotFound
	}
	if err != nil {
		return err
	}

	if n.Attempts+1 >= s.cfg.NotifyMaxAttempts {
		log.Printf("❌ Notification %d permanently failed after %d attempts: %s", n.ID, n.Attempts+1, deliveryErr)
		return s.repo.MarkFailedPermanently(ctx, id, deliveryErr)
	}

	delay := backoffDelay(n.Attempts, s.cfg.NotifyBackoffFloor, s.cfg.NotifyBackoffStep, s.cfg.NotifyBackoffCap)
	return s.repo.Reschedule(ctx, id, deliveryErr, s.clk.Now().Add(delay))
}

func (s *notificationService) PendingCount(ctx context.Context) (int64, error) {
	return s.repo.CountByStatus(ctx, model.NotificationPending)
}

func (s *notificationService) StartDispatcher(ctx context.Context) {
	log.Println("📬 Notification dispatcher started")
	ticker := time.NewTicker(s.cfg.DispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.drainDue(ctx)
		case <-ctx.Done():
			log.Println("📬 Notification dispatcher stopped")
			return
		}
	}
}

func (s *notificationService) drainDue(ctx context.Context) {
	due, err := s.DequeueDue(ctx, s.cfg.DispatchBatchSize)
	if err != nil {
		log.Printf("failed to fetch due notifications: %v", err)
		return
	}

	for i := range due {
		n := &due[i]
		if err := s.deliverer.Deliver(ctx, n); err != nil {
			if mErr := s.MarkFailed(ctx, n.ID, err.Error()); mErr != nil {
				log.Printf("failed to record delivery failure for %d: %v", n.ID, mErr)
			}
			continue
		}
		if err := s.MarkSent(ctx, n.ID); err != nil {
			log.Printf("failed to mark notification %d sent: %v", n.ID, err)
		}
	}
}

// backoffDelay grows linearly with prior attempts between a floor and a
// cap: min(cap, max(floor, attempts*step)).
func backoffDelay(attempts int, floor, step, cap time.Duration) time.Duration {
	d := time.Duration(attempts) * step
	if d < floor {
		d = floor
	}
	if d > cap {
		d = cap
	}
	return d
}

// redisDeliverer publishes to the per-user channel the websocket bridge
// and external consumers subscribe to.
type redisDeliverer struct {
	client *redis.Client
}

func NewRedisDeliverer(client *redis.Client) Deliverer {
	return &redisDeliverer{client: client}
}

func UserNotificationChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user_notifications:%s", userID)
}

func (d *redisDeliverer) Deliver(ctx context.Context, n *model.Notification) error {
	if d.client == nil {
		// no transport configured: queue drains as a noop
		return nil
	}
	return d.client.Publish(ctx, UserNotificationChannel(n.UserID), n.Payload).Err()
}
