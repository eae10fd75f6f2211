package services

import (
	"context"
	"errors"
	"strings"

	"teamhub/internal/apperr"
	"teamhub/internal/authz"
	"teamhub/internal/models"
	"teamhub/internal/repositories"
)

type DiscussionInput struct {
	Title     string
	ProjectID int64
	Tags      []string
}

type DiscussionQuery struct {
	ProjectID *int64
	Search    string
	models.PageRequest
}

type MessageInput struct {
	Content  string
	ParentID *int64
	Mentions []int64
}

// DiscussionService handles project discussions and their message threads.
type DiscussionService interface {
	List(ctx context.Context, actor Actor, q DiscussionQuery) ([]models.DiscussionView, models.Pagination, error)
	// Get returns the thread oldest message first and records the caller as a participant.
	Get(ctx context.Context, actor Actor, id int64) (*models.DiscussionView, []models.MessageView, error)
	Create(ctx context.Context, actor Actor, in DiscussionInput) (*models.DiscussionView, error)
	PostMessage(ctx context.Context, actor Actor, id int64, in MessageInput) (*models.MessageView, error)
	TogglePin(ctx context.Context, actor Actor, id int64) (*models.DiscussionView, error)
	ToggleLock(ctx context.Context, actor Actor, id int64) (*models.DiscussionView, error)
}

type discussionService struct {
	store  *repositories.Store
	notify *Dispatcher
	refs   refs
	now    Clock
}

func NewDiscussionService(store *repositories.Store, notify *Dispatcher, now Clock) DiscussionService {
	return &discussionService{
		store:  store,
		notify: notify,
		refs:   refs{users: store.Users, projects: store.Projects},
		now:    clockOrNow(now),
	}
}

func (s *discussionService) load(ctx context.Context, actor Actor, id int64) (*models.Discussion, *models.Project, error) {
	d, err := s.store.Discussions.GetByID(ctx, id)
	if err != nil {
		return nil, nil, storeErr(err, "Discussion")
	}
	p, err := s.store.Projects.GetByID(ctx, d.ProjectID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, err
	}
	if err := authz.RequireMembership(p, actor.ID); err != nil {
		return nil, nil, err
	}
	return d, p, nil
}

func (s *discussionService) List(ctx context.Context, actor Actor, q DiscussionQuery) ([]models.DiscussionView, models.Pagination, error) {
	ids, err := visibleProjects(ctx, s.store.Projects, actor.ID, q.ProjectID)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	items, total, err := s.store.Discussions.List(ctx, models.DiscussionFilter{
		ProjectIDs:  ids,
		Search:      q.Search,
		PageRequest: q.PageRequest,
	})
	if err != nil {
		return nil, models.Pagination{}, err
	}
	views, err := s.refs.discussionViews(ctx, items)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return views, models.NewPagination(q.PageRequest, total), nil
}

func (s *discussionService) Get(ctx context.Context, actor Actor, id int64) (*models.DiscussionView, []models.MessageView, error) {
	d, _, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	if !d.HasParticipant(actor.ID) {
		if err := s.store.Discussions.AddParticipant(ctx, d.ID, actor.ID); err != nil {
			return nil, nil, storeErr(err, "Discussion")
		}
		d.Participants = append(d.Participants, actor.ID)
	}
	view, err := s.refs.discussionView(ctx, d)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.store.Messages.ListByDiscussion(ctx, d.ID)
	if err != nil {
		return nil, nil, err
	}
	mviews, err := s.refs.messageViews(ctx, msgs)
	if err != nil {
		return nil, nil, err
	}
	return view, mviews, nil
}

func (s *discussionService) Create(ctx context.Context, actor Actor, in DiscussionInput) (*models.DiscussionView, error) {
	p, err := projectForCreate(ctx, s.store.Projects, in.ProjectID, actor.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	d := &models.Discussion{
		Title:         strings.TrimSpace(in.Title),
		ProjectID:     p.ID,
		CreatedBy:     actor.ID,
		Tags:          in.Tags,
		Participants:  []int64{actor.ID},
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	if err := s.store.Discussions.Create(ctx, d); err != nil {
		return nil, err
	}
	return s.refs.discussionView(ctx, d)
}

func (s *discussionService) PostMessage(ctx context.Context, actor Actor, id int64, in MessageInput) (*models.MessageView, error) {
	d, _, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if d.IsLocked {
		return nil, apperr.Conflict("Discussion is locked")
	}
	author, err := s.store.Users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, storeErr(err, "User")
	}
	var parent *models.Message
	if in.ParentID != nil {
		parent, err = s.store.Messages.GetByID(ctx, *in.ParentID)
		if errors.Is(err, repositories.ErrNotFound) || (err == nil && parent.DiscussionID != d.ID) {
			return nil, apperr.Validation(apperr.FieldError{Field: "parentId", Message: "parent message not found in this discussion"})
		}
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	m := &models.Message{
		Content:      strings.TrimSpace(in.Content),
		Author:       actor.ID,
		DiscussionID: d.ID,
		ParentID:     in.ParentID,
		Reactions:    []models.Reaction{},
		Mentions:     distinctExcept(in.Mentions, 0),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Messages.Post(ctx, m); err != nil {
		return nil, storeErr(err, "Discussion")
	}

	s.notify.Mentioned(ctx, d, author, m.Mentions)
	if parent != nil {
		s.notify.DiscussionReply(ctx, d, author, parent.Author)
	}

	views, err := s.refs.messageViews(ctx, []models.Message{*m})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *discussionService) TogglePin(ctx context.Context, actor Actor, id int64) (*models.DiscussionView, error) {
	d, p, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !authz.IsAdmin(p, actor.ID) {
		return nil, apperr.Forbidden("Only project admins can pin discussions")
	}
	d.IsPinned = !d.IsPinned
	d.UpdatedAt = s.now()
	if err := s.store.Discussions.SetPinned(ctx, d.ID, d.IsPinned, d.UpdatedAt); err != nil {
		return nil, storeErr(err, "Discussion")
	}
	return s.refs.discussionView(ctx, d)
}

func (s *discussionService) ToggleLock(ctx context.Context, actor Actor, id int64) (*models.DiscussionView, error) {
	d, p, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !authz.IsAdmin(p, actor.ID) {
		return nil, apperr.Forbidden("Only project admins can lock discussions")
	}
	d.IsLocked = !d.IsLocked
	d.UpdatedAt = s.now()
	if err := s.store.Discussions.SetLocked(ctx, d.ID, d.IsLocked, d.UpdatedAt); err != nil {
		return nil, storeErr(err, "Discussion")
	}
	return s.refs.discussionView(ctx, d)
}
