package memstore

import (
	"context"
	"time"

	"teamhub/internal/models"
	"teamhub/internal/repositories"
)

type notificationRepo struct{ *db }

func cloneNotification(n *models.Notification) models.Notification {
	c := *n
	c.ReadAt = cloneTime(n.ReadAt)
	if n.RelatedEntity != nil {
		e := *n.RelatedEntity
		c.RelatedEntity = &e
	}
	if n.Metadata != nil {
		c.Metadata = make(map[string]string, len(n.Metadata))
		for k, v := range n.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

func (r *notificationRepo) Create(_ context.Context, n *models.Notification) error {
	if err := models.ValidateNotification(n); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = r.nextID()
	c := cloneNotification(n)
	r.notifications[n.ID] = &c
	return nil
}

func (r *notificationRepo) GetByID(_ context.Context, id int64, now time.Time) (*models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.notifications[id]
	if !ok || n.IsExpired(now) {
		return nil, repositories.ErrNotFound
	}
	c := cloneNotification(n)
	return &c, nil
}

func (r *notificationRepo) List(_ context.Context, f models.NotificationFilter) ([]models.Notification, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := []models.Notification{}
	for _, n := range r.notifications {
		if n.UserID != f.UserID || n.IsExpired(f.Now) {
			continue
		}
		if f.Type != nil && n.Type != *f.Type {
			continue
		}
		if f.IsRead != nil && n.IsRead != *f.IsRead {
			continue
		}
		if f.Priority != nil && n.Priority != *f.Priority {
			continue
		}
		matched = append(matched, cloneNotification(n))
	}
	newestFirst(matched, func(n models.Notification) time.Time { return n.CreatedAt }, func(n models.Notification) int64 { return n.ID })
	return paginate(matched, f.PageRequest), len(matched), nil
}

func (r *notificationRepo) CountUnread(_ context.Context, userID int64, now time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, n := range r.notifications {
		if n.UserID == userID && !n.IsRead && !n.IsExpired(now) {
			count++
		}
	}
	return count, nil
}

func (r *notificationRepo) SetRead(_ context.Context, id int64, read bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return repositories.ErrNotFound
	}
	n.IsRead = read
	n.ReadAt = nil
	if read {
		n.ReadAt = &at
	}
	n.UpdatedAt = at
	return nil
}

func (r *notificationRepo) MarkAllRead(_ context.Context, userID int64, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.notifications {
		if n.UserID == userID && !n.IsRead && !n.IsExpired(at) {
			n.IsRead = true
			readAt := at
			n.ReadAt = &readAt
			n.UpdatedAt = at
			count++
		}
	}
	return count, nil
}

func (r *notificationRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.notifications[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.notifications, id)
	return nil
}

func (r *notificationRepo) DeleteAllForUser(_ context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for id, n := range r.notifications {
		if n.UserID == userID {
			delete(r.notifications, id)
			count++
		}
	}
	return count, nil
}

func (r *notificationRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for id, n := range r.notifications {
		if n.IsExpired(now) {
			delete(r.notifications, id)
			count++
		}
	}
	return count, nil
}
