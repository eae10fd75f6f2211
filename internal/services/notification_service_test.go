package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamhub/internal/apperr"
	"teamhub/internal/models"
	"teamhub/internal/repositories"
)

func seedInbox(t *testing.T, f *fixture, userID int64, n int) []*models.Notification {
	t.Helper()
	out := make([]*models.Notification, 0, n)
	for i := 0; i < n; i++ {
		note := &models.Notification{
			Type: models.NotifProjectUpdate, Title: "Update", Message: "Something changed",
			UserID: userID, Priority: models.PriorityLow,
		}
		require.NoError(t, f.notify.Create(context.Background(), note))
		out = append(out, note)
		f.advance(time.Second)
	}
	return out
}

func TestNotificationListCarriesUnreadCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.user(t, "Ann Lee", models.UserRoleMember)
	notes := seedInbox(t, f, ann.ID, 25)

	_, err := f.notifications.MarkRead(ctx, ann, notes[0].ID)
	require.NoError(t, err)

	page, err := f.notifications.List(ctx, ann, NotificationQuery{PageRequest: models.NewPageRequest(1, 0, DefaultNotificationPageLimit)})
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 20)
	assert.Equal(t, 24, page.UnreadCount)
	assert.Equal(t, models.Pagination{Current: 1, Pages: 2, Total: 25}, page.Pagination)

	unread := false
	page, err = f.notifications.List(ctx, ann, NotificationQuery{IsRead: &unread, PageRequest: models.NewPageRequest(1, 50, 20)})
	require.NoError(t, err)
	assert.Equal(t, 24, page.Pagination.Total)
}

func TestNotificationExpiryExcludedEverywhere(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.user(t, "Ann Lee", models.UserRoleMember)
	note := seedInbox(t, f, ann.ID, 1)[0]

	f.now = note.CreatedAt.Add(DefaultNotificationTTL - time.Millisecond)
	count, err := f.notifications.UnreadCount(ctx, ann)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	f.now = note.CreatedAt.Add(DefaultNotificationTTL)
	count, err = f.notifications.UnreadCount(ctx, ann)
	require.NoError(t, err)
	assert.Zero(t, count)
	page, err := f.notifications.List(ctx, ann, NotificationQuery{PageRequest: models.NewPageRequest(1, 20, 20)})
	require.NoError(t, err)
	assert.Empty(t, page.Notifications)
	_, err = f.notifications.MarkRead(ctx, ann, note.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestNotificationOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.user(t, "Ann Lee", models.UserRoleMember)
	bob := f.user(t, "Bob Stone", models.UserRoleMember)
	note := seedInbox(t, f, ann.ID, 1)[0]

	_, err := f.notifications.MarkRead(ctx, bob, note.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = f.notifications.MarkUnread(ctx, bob, note.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.True(t, apperr.Is(f.notifications.Delete(ctx, bob, note.ID), apperr.KindForbidden))

	read, err := f.notifications.MarkRead(ctx, ann, note.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)
	back, err := f.notifications.MarkUnread(ctx, ann, note.ID)
	require.NoError(t, err)
	assert.False(t, back.IsRead)
	assert.Nil(t, back.ReadAt)

	require.NoError(t, f.notifications.Delete(ctx, ann, note.ID))
	assert.True(t, apperr.Is(f.notifications.Delete(ctx, ann, note.ID), apperr.KindNotFound))
}

func TestMarkAllReadAndClearAllStayInOwnInbox(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.user(t, "Ann Lee", models.UserRoleMember)
	bob := f.user(t, "Bob Stone", models.UserRoleMember)
	seedInbox(t, f, ann.ID, 3)
	seedInbox(t, f, bob.ID, 2)

	n, err := f.notifications.MarkAllRead(ctx, ann)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	count, _ := f.notifications.UnreadCount(ctx, bob)
	assert.Equal(t, 2, count)

	n, err = f.notifications.ClearAll(ctx, bob)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Len(t, f.inbox(t, ann.ID), 3)
}

func TestTestNotificationsOnlyInDevelopment(t *testing.T) {
	ctx := context.Background()
	in := TestNotificationInput{Type: models.NotifDeadlineReminder, Title: "Ping", Message: "Just testing"}

	dev := newFixture(t)
	ann := dev.user(t, "Ann Lee", models.UserRoleMember)
	n, err := dev.notifications.CreateTest(ctx, ann, in)
	require.NoError(t, err)
	assert.Equal(t, ann.ID, n.UserID)
	assert.Equal(t, models.PriorityMedium, n.Priority)

	_, err = dev.notifications.CreateTest(ctx, ann, TestNotificationInput{Type: "bogus", Title: "x", Message: "y"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	prod := newFixture(t, production())
	bob := prod.user(t, "Bob Stone", models.UserRoleMember)
	_, err = prod.notifications.CreateTest(ctx, bob, in)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Equal(t, "Test notifications only available in development", err.Error())
}

type recordingChannel struct {
	mu   sync.Mutex
	got  []string
	fail bool
}

func (c *recordingChannel) Name() string { return "recording" }

func (c *recordingChannel) Deliver(_ context.Context, to *models.User, n *models.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, to.Name+": "+n.Title)
	if c.fail {
		return errors.New("transport down")
	}
	return nil
}

func TestDispatcherDeliversAfterPersisting(t *testing.T) {
	ch := &recordingChannel{fail: true}
	f := newFixture(t, withChannels(ch))
	ann := f.user(t, "Ann Lee", models.UserRoleMember)
	bob := f.user(t, "Bob Stone", models.UserRoleMember)
	p := f.project(t, ann, "Launch")

	// a failing channel never fails the parent operation
	f.addMember(t, ann, p.ID, bob, models.MemberRoleMember)
	f.notify.Wait()

	assert.Equal(t, []string{"Bob Stone: Project Invitation"}, ch.got)
	assert.Len(t, f.inboxOf(t, bob.ID, models.NotifTeamInvite), 1)
}

func TestDispatcherSwallowsStoreErrors(t *testing.T) {
	f := newFixture(t)
	ann := f.user(t, "Ann Lee", models.UserRoleMember)
	p := f.project(t, ann, "Launch")
	proj, err := f.store.Projects.GetByID(context.Background(), p.ID)
	require.NoError(t, err)

	// user id 0 fails validation inside the store; the trigger only logs it
	assert.NotPanics(t, func() { f.notify.MemberAdded(context.Background(), proj, 0) })
	assert.Empty(t, f.inbox(t, 0))
}

type brokenNotifications struct {
	repositories.NotificationRepository
}

func (brokenNotifications) Create(context.Context, *models.Notification) error {
	return errors.New("notifications table unavailable")
}

func TestTaskCreatedWhenAssignmentNotificationFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.user(t, "Ann Lee", models.UserRoleMember)
	bob := f.user(t, "Bob Stone", models.UserRoleMember)
	p := f.project(t, ann, "Launch")
	f.addMember(t, ann, p.ID, bob, models.MemberRoleMember)

	clock := func() time.Time { return f.now }
	broken := NewDispatcher(brokenNotifications{f.store.Notifications}, f.store.Users, DefaultNotificationTTL, clock)
	tasks := NewTaskService(f.store, broken, CompletionOnTransition, clock)

	task, err := tasks.Create(ctx, ann, TaskInput{Title: "Ship", ProjectID: p.ID, AssignedTo: &bob.ID})
	require.NoError(t, err)

	stored, err := f.store.Tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedTo)
	assert.Equal(t, bob.ID, *stored.AssignedTo)
	assert.Empty(t, f.inboxOf(t, bob.ID, models.NotifTaskAssigned))
}

type gatedChannel struct {
	release chan struct{}
	mu      sync.Mutex
	done    int
	ctxErr  error
}

func (c *gatedChannel) Name() string { return "gated" }

func (c *gatedChannel) Deliver(ctx context.Context, _ *models.User, _ *models.Notification) error {
	<-c.release
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done++
	c.ctxErr = ctx.Err()
	return nil
}

func TestDrainWaitsForDeliveries(t *testing.T) {
	ch := &gatedChannel{release: make(chan struct{})}
	f := newFixture(t, withChannels(ch))
	ann := f.user(t, "Ann Lee", models.UserRoleMember)
	bob := f.user(t, "Bob Stone", models.UserRoleMember)
	p := f.project(t, ann, "Launch")

	// контекст запроса отменяется сразу после ответа
	reqCtx, cancel := context.WithCancel(context.Background())
	proj, err := f.store.Projects.GetByID(reqCtx, p.ID)
	require.NoError(t, err)
	f.notify.MemberAdded(reqCtx, proj, bob.ID)
	cancel()

	short, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	assert.ErrorIs(t, f.notify.Drain(short), context.DeadlineExceeded)

	close(ch.release)
	require.NoError(t, f.notify.Drain(context.Background()))
	assert.Equal(t, 1, ch.done)
	assert.NoError(t, ch.ctxErr)
}
