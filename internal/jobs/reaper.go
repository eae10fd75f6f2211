package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"teamhub/internal/repositories"
)

// NotificationReaper periodically deletes notifications whose expiresAt has passed.
// A failed sweep is logged and left to the next tick.
type NotificationReaper struct {
	repo repositories.NotificationRepository
	now  func() time.Time
	cron *cron.Cron
}

func NewNotificationReaper(repo repositories.NotificationRepository, now func() time.Time) *NotificationReaper {
	if now == nil {
		now = time.Now
	}
	return &NotificationReaper{repo: repo, now: now}
}

// Start schedules the sweep with a standard cron spec or descriptor such as "@hourly".
func (r *NotificationReaper) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		r.Sweep(ctx)
	}); err != nil {
		return fmt.Errorf("schedule notification reaper %q: %w", schedule, err)
	}
	r.cron = c
	c.Start()
	log.Printf("[reaper] notification reaper started (%s)", schedule)
	return nil
}

// Stop waits for a running sweep to finish or ctx to expire.
func (r *NotificationReaper) Stop(ctx context.Context) error {
	if r.cron == nil {
		return nil
	}
	select {
	case <-r.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep runs one pass and returns the number of removed notifications.
func (r *NotificationReaper) Sweep(ctx context.Context) int64 {
	n, err := r.repo.DeleteExpired(ctx, r.now())
	if err != nil {
		log.Printf("[reaper][err] %v", err)
		return 0
	}
	if n > 0 {
		log.Printf("[reaper] removed %d expired notifications", n)
	}
	return n
}
