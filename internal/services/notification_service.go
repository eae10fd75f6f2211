package services

import (
	"context"
	"strings"

	"teamhub/internal/apperr"
	"teamhub/internal/models"
	"teamhub/internal/repositories"
)

const DefaultNotificationPageLimit = 20

type NotificationQuery struct {
	Type     *models.NotificationType
	IsRead   *bool
	Priority *models.Priority
	models.PageRequest
}

type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unreadCount"`
	Pagination    models.Pagination     `json:"pagination"`
}

type TestNotificationInput struct {
	Type     models.NotificationType
	Title    string
	Message  string
	Priority models.Priority
}

// NotificationService serves a user's own inbox. Every operation is scoped to the actor.
type NotificationService interface {
	List(ctx context.Context, actor Actor, q NotificationQuery) (*NotificationPage, error)
	UnreadCount(ctx context.Context, actor Actor) (int, error)
	MarkRead(ctx context.Context, actor Actor, id int64) (*models.Notification, error)
	MarkUnread(ctx context.Context, actor Actor, id int64) (*models.Notification, error)
	MarkAllRead(ctx context.Context, actor Actor) (int64, error)
	Delete(ctx context.Context, actor Actor, id int64) error
	ClearAll(ctx context.Context, actor Actor) (int64, error)
	CreateTest(ctx context.Context, actor Actor, in TestNotificationInput) (*models.Notification, error)
}

type notificationService struct {
	repo        repositories.NotificationRepository
	notify      *Dispatcher
	development bool
	now         Clock
}

func NewNotificationService(repo repositories.NotificationRepository, notify *Dispatcher, development bool, now Clock) NotificationService {
	return &notificationService{repo: repo, notify: notify, development: development, now: clockOrNow(now)}
}

func (s *notificationService) List(ctx context.Context, actor Actor, q NotificationQuery) (*NotificationPage, error) {
	now := s.now()
	items, total, err := s.repo.List(ctx, models.NotificationFilter{
		UserID:      actor.ID,
		Type:        q.Type,
		IsRead:      q.IsRead,
		Priority:    q.Priority,
		Now:         now,
		PageRequest: q.PageRequest,
	})
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx, actor.ID, now)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{
		Notifications: items,
		UnreadCount:   unread,
		Pagination:    models.NewPagination(q.PageRequest, total),
	}, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, actor Actor) (int, error) {
	return s.repo.CountUnread(ctx, actor.ID, s.now())
}

// own loads a live notification and checks it belongs to the actor.
func (s *notificationService) own(ctx context.Context, actor Actor, id int64) (*models.Notification, error) {
	n, err := s.repo.GetByID(ctx, id, s.now())
	if err != nil {
		return nil, storeErr(err, "Notification")
	}
	if n.UserID != actor.ID {
		return nil, apperr.Forbidden("Access denied")
	}
	return n, nil
}

func (s *notificationService) setRead(ctx context.Context, actor Actor, id int64, read bool) (*models.Notification, error) {
	n, err := s.own(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.repo.SetRead(ctx, id, read, now); err != nil {
		return nil, storeErr(err, "Notification")
	}
	n.IsRead = read
	n.ReadAt = nil
	if read {
		n.ReadAt = &now
	}
	n.UpdatedAt = now
	return n, nil
}

func (s *notificationService) MarkRead(ctx context.Context, actor Actor, id int64) (*models.Notification, error) {
	return s.setRead(ctx, actor, id, true)
}

func (s *notificationService) MarkUnread(ctx context.Context, actor Actor, id int64) (*models.Notification, error) {
	return s.setRead(ctx, actor, id, false)
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	return s.repo.MarkAllRead(ctx, actor.ID, s.now())
}

func (s *notificationService) Delete(ctx context.Context, actor Actor, id int64) error {
	if _, err := s.own(ctx, actor, id); err != nil {
		return err
	}
	return storeErr(s.repo.Delete(ctx, id), "Notification")
}

func (s *notificationService) ClearAll(ctx context.Context, actor Actor) (int64, error) {
	return s.repo.DeleteAllForUser(ctx, actor.ID)
}

func (s *notificationService) CreateTest(ctx context.Context, actor Actor, in TestNotificationInput) (*models.Notification, error) {
	if !s.development {
		return nil, apperr.Forbidden("Test notifications only available in development")
	}
	n := &models.Notification{
		Type:     in.Type,
		Title:    strings.TrimSpace(in.Title),
		Message:  strings.TrimSpace(in.Message),
		UserID:   actor.ID,
		Priority: in.Priority,
	}
	if err := s.notify.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}
