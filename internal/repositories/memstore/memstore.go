// Package memstore keeps every entity in process memory behind the repository interfaces.
// It backs the service tests and development runs without a database.
package memstore

import (
	"sort"
	"strings"
	"sync"
	"time"

	"teamhub/internal/models"
	"teamhub/internal/repositories"
)

type db struct {
	mu  sync.RWMutex
	now func() time.Time
	seq int64

	users         map[int64]*models.User
	projects      map[int64]*models.Project
	tasks         map[int64]*models.Task
	comments      map[int64]*models.Comment
	discussions   map[int64]*models.Discussion
	messages      map[int64]*models.Message
	notifications map[int64]*models.Notification
}

type Option func(*db)

// WithClock overrides the clock used for timestamps the store sets itself.
func WithClock(now func() time.Time) Option {
	return func(d *db) { d.now = now }
}

// New returns a Store whose repositories share one in-memory database.
func New(opts ...Option) *repositories.Store {
	d := &db{
		now:           time.Now,
		users:         map[int64]*models.User{},
		projects:      map[int64]*models.Project{},
		tasks:         map[int64]*models.Task{},
		comments:      map[int64]*models.Comment{},
		discussions:   map[int64]*models.Discussion{},
		messages:      map[int64]*models.Message{},
		notifications: map[int64]*models.Notification{},
	}
	for _, o := range opts {
		o(d)
	}
	return &repositories.Store{
		Users:         &userRepo{d},
		Projects:      &projectRepo{d},
		Tasks:         &taskRepo{d},
		Comments:      &commentRepo{d},
		Discussions:   &discussionRepo{d},
		Messages:      &messageRepo{d},
		Notifications: &notificationRepo{d},
	}
}

// nextID must be called with mu held.
func (d *db) nextID() int64 {
	d.seq++
	return d.seq
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

func hasID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// newestFirst orders by creation time descending, then id descending.
func newestFirst[T any](items []T, created func(T) time.Time, id func(T) int64) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return id(items[i]) > id(items[j])
	})
}

func oldestFirst[T any](items []T, created func(T) time.Time, id func(T) int64) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return id(items[i]) < id(items[j])
	})
}

func paginate[T any](items []T, p models.PageRequest) []T {
	if p.Limit <= 0 {
		return items
	}
	return models.Window(items, p)
}

func cloneStrings(s []string) []string {
	return append([]string{}, s...)
}

func cloneInt64s(s []int64) []int64 {
	return append([]int64{}, s...)
}

func cloneReactions(rs []models.Reaction) []models.Reaction {
	out := make([]models.Reaction, 0, len(rs))
	for _, r := range rs {
		out = append(out, models.Reaction{Emoji: r.Emoji, Users: cloneInt64s(r.Users)})
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneInt64Ptr(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
