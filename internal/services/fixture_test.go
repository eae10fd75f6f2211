package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"teamhub/internal/models"
	"teamhub/internal/repositories"
	"teamhub/internal/repositories/memstore"
)

var t0 = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store  *repositories.Store
	now    time.Time
	notify *Dispatcher

	projects      ProjectService
	tasks         TaskService
	discussions   DiscussionService
	notifications NotificationService
	users         UserService
}

type fixtureOpt func(*fixtureCfg)

type fixtureCfg struct {
	policy      CompletionPolicy
	development bool
	channels    []Channel
}

func withPolicy(p CompletionPolicy) fixtureOpt { return func(c *fixtureCfg) { c.policy = p } }
func production() fixtureOpt                   { return func(c *fixtureCfg) { c.development = false } }
func withChannels(ch ...Channel) fixtureOpt    { return func(c *fixtureCfg) { c.channels = ch } }

func newFixture(t *testing.T, opts ...fixtureOpt) *fixture {
	t.Helper()
	cfg := fixtureCfg{policy: CompletionOnTransition, development: true}
	for _, o := range opts {
		o(&cfg)
	}
	f := &fixture{now: t0}
	clock := func() time.Time { return f.now }
	f.store = memstore.New(memstore.WithClock(clock))
	f.notify = NewDispatcher(f.store.Notifications, f.store.Users, DefaultNotificationTTL, clock, cfg.channels...)
	f.projects = NewProjectService(f.store, f.notify, clock)
	f.tasks = NewTaskService(f.store, f.notify, cfg.policy, clock)
	f.discussions = NewDiscussionService(f.store, f.notify, clock)
	f.notifications = NewNotificationService(f.store.Notifications, f.notify, cfg.development, clock)
	f.users = NewUserService(f.store, clock)
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) user(t *testing.T, name string, role models.UserRole) Actor {
	t.Helper()
	u := &models.User{
		Name:      name,
		Email:     fmt.Sprintf("%s@example.com", strings.ToLower(strings.ReplaceAll(name, " ", "."))),
		Role:      role,
		Status:    models.UserStatusOffline,
		CreatedAt: f.now,
		UpdatedAt: f.now,
	}
	require.NoError(t, f.store.Users.Create(context.Background(), u))
	return Actor{ID: u.ID, Role: string(role)}
}

func (f *fixture) project(t *testing.T, owner Actor, name string) *models.ProjectView {
	t.Helper()
	p, err := f.projects.Create(context.Background(), owner, ProjectInput{
		Name: name, Description: name + " work", StartDate: f.now,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) addMember(t *testing.T, admin Actor, projectID int64, who Actor, role models.MemberRole) {
	t.Helper()
	_, err := f.projects.AddMember(context.Background(), admin, projectID, who.ID, role)
	require.NoError(t, err)
}

// inbox lists the live notifications of userID, newest first.
func (f *fixture) inbox(t *testing.T, userID int64) []models.Notification {
	t.Helper()
	items, _, err := f.store.Notifications.List(context.Background(), models.NotificationFilter{UserID: userID, Now: f.now})
	require.NoError(t, err)
	return items
}

func (f *fixture) inboxOf(t *testing.T, userID int64, typ models.NotificationType) []models.Notification {
	t.Helper()
	var out []models.Notification
	for _, n := range f.inbox(t, userID) {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
