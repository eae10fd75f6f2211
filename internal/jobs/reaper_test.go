package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamhub/internal/models"
	"teamhub/internal/repositories"
	"teamhub/internal/repositories/memstore"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSweepRemovesOnlyExpired(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	ttl := 30 * 24 * time.Hour
	for i, created := range []time.Time{t0, t0.Add(time.Hour)} {
		n := &models.Notification{
			Type: models.NotifProjectUpdate, Title: "Update", Message: "Something changed",
			UserID: int64(i + 1), Priority: models.PriorityLow, CreatedAt: created, ExpiresAt: created.Add(ttl),
		}
		require.NoError(t, store.Notifications.Create(ctx, n))
	}

	now := t0.Add(ttl)
	r := NewNotificationReaper(store.Notifications, func() time.Time { return now })
	assert.EqualValues(t, 1, r.Sweep(ctx))
	assert.EqualValues(t, 0, r.Sweep(ctx))

	now = now.Add(time.Hour)
	assert.EqualValues(t, 1, r.Sweep(ctx))
}

type failingRepo struct {
	repositories.NotificationRepository
}

func (failingRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestSweepSwallowsErrors(t *testing.T) {
	r := NewNotificationReaper(failingRepo{}, nil)
	assert.EqualValues(t, 0, r.Sweep(context.Background()))
}

func TestStartRejectsBadSchedule(t *testing.T) {
	r := NewNotificationReaper(failingRepo{}, nil)
	assert.Error(t, r.Start("every so often"))
	assert.NoError(t, r.Stop(context.Background()))

	require.NoError(t, r.Start("@hourly"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, r.Stop(ctx))
}
