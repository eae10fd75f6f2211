// internal/services/task_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"teamhub/internal/apperr"
	"teamhub/internal/authz"
	"teamhub/internal/models"
	"teamhub/internal/repositories"
)

// CompletionPolicy decides when a task_completed notification fires.
type CompletionPolicy string

const (
	// CompletionOnTransition fires only when the stored status was not already completed.
	CompletionOnTransition CompletionPolicy = "on_transition"
	// CompletionAlways fires on every update that sets status to completed.
	CompletionAlways CompletionPolicy = "always"
)

type TaskInput struct {
	Title          string
	Description    string
	ProjectID      int64
	AssignedTo     *int64
	Priority       models.Priority
	DueDate        *time.Time
	Tags           []string
	EstimatedHours *float64
}

type TaskPatch struct {
	Title          *string
	Description    *string
	Status         *models.TaskStatus
	Priority       *models.Priority
	AssignedTo     *int64
	DueDate        *time.Time
	Tags           []string
	EstimatedHours *float64
	ActualHours    *float64
}

type TaskQuery struct {
	ProjectID  *int64
	AssignedTo *int64
	Status     *models.TaskStatus
	Priority   *models.Priority
	models.PageRequest
}

type CommentInput struct {
	Content  string
	ParentID *int64
}

// TaskService defines the interface for task-related business logic.
type TaskService interface {
	List(ctx context.Context, actor Actor, q TaskQuery) ([]models.TaskView, models.Pagination, error)
	Get(ctx context.Context, actor Actor, id int64) (*models.TaskView, []models.CommentView, error)
	Create(ctx context.Context, actor Actor, in TaskInput) (*models.TaskView, error)
	Update(ctx context.Context, actor Actor, id int64, patch TaskPatch) (*models.TaskView, error)
	Delete(ctx context.Context, actor Actor, id int64) error

	AddComment(ctx context.Context, actor Actor, taskID int64, in CommentInput) (*models.CommentView, error)
	AddSubtask(ctx context.Context, actor Actor, taskID int64, title string) (*models.TaskView, error)
	ToggleSubtask(ctx context.Context, actor Actor, taskID int64, index int) (*models.TaskView, error)
	React(ctx context.Context, actor Actor, commentID int64, emoji string) (*models.CommentView, error)
	Unreact(ctx context.Context, actor Actor, commentID int64, emoji string) (*models.CommentView, error)
}

type taskService struct {
	store  *repositories.Store
	notify *Dispatcher
	refs   refs
	policy CompletionPolicy
	now    Clock
}

// NewTaskService creates a new instance of TaskService.
func NewTaskService(store *repositories.Store, notify *Dispatcher, policy CompletionPolicy, now Clock) TaskService {
	if policy == "" {
		policy = CompletionOnTransition
	}
	return &taskService{
		store:  store,
		notify: notify,
		refs:   refs{users: store.Users, projects: store.Projects},
		policy: policy,
		now:    clockOrNow(now),
	}
}

// load fetches the task and its project and checks the actor is a member.
func (s *taskService) load(ctx context.Context, actor Actor, id int64) (*models.Task, *models.Project, error) {
	t, err := s.store.Tasks.GetByID(ctx, id)
	if err != nil {
		return nil, nil, storeErr(err, "Task")
	}
	p, err := s.store.Projects.GetByID(ctx, t.ProjectID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, err
	}
	if err := authz.RequireMembership(p, actor.ID); err != nil {
		return nil, nil, err
	}
	return t, p, nil
}

func checkAssignee(p *models.Project, assignee *int64) error {
	if assignee != nil && !authz.IsMember(p, *assignee) {
		return apperr.Validation(apperr.FieldError{Field: "assignedTo", Message: "assignee must be a project member"})
	}
	return nil
}

func (s *taskService) List(ctx context.Context, actor Actor, q TaskQuery) ([]models.TaskView, models.Pagination, error) {
	ids, err := visibleProjects(ctx, s.store.Projects, actor.ID, q.ProjectID)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	items, total, err := s.store.Tasks.List(ctx, models.TaskFilter{
		ProjectIDs:  ids,
		AssignedTo:  q.AssignedTo,
		Status:      q.Status,
		Priority:    q.Priority,
		PageRequest: q.PageRequest,
	})
	if err != nil {
		return nil, models.Pagination{}, err
	}
	views, err := s.refs.taskViews(ctx, items, s.now())
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return views, models.NewPagination(q.PageRequest, total), nil
}

func (s *taskService) Get(ctx context.Context, actor Actor, id int64) (*models.TaskView, []models.CommentView, error) {
	t, _, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	view, err := s.refs.taskView(ctx, t, s.now())
	if err != nil {
		return nil, nil, err
	}
	comments, err := s.store.Comments.ListByTask(ctx, t.ID)
	if err != nil {
		return nil, nil, err
	}
	cviews, err := s.refs.commentViews(ctx, comments)
	if err != nil {
		return nil, nil, err
	}
	return view, cviews, nil
}

func (s *taskService) Create(ctx context.Context, actor Actor, in TaskInput) (*models.TaskView, error) {
	p, err := projectForCreate(ctx, s.store.Projects, in.ProjectID, actor.ID)
	if err != nil {
		return nil, err
	}
	if err := checkAssignee(p, in.AssignedTo); err != nil {
		return nil, err
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	now := s.now()
	t := &models.Task{
		Title:          strings.TrimSpace(in.Title),
		Description:    strings.TrimSpace(in.Description),
		Status:         models.StatusTodo,
		Priority:       priority,
		ProjectID:      p.ID,
		AssignedTo:     in.AssignedTo,
		CreatedBy:      actor.ID,
		DueDate:        in.DueDate,
		Tags:           in.Tags,
		EstimatedHours: in.EstimatedHours,
		Subtasks:       []models.Subtask{},
		Dependencies:   []int64{},
		Watchers:       []int64{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if err := s.store.Tasks.Create(ctx, t); err != nil {
		return nil, err
	}
	s.notify.TaskAssigned(ctx, t, p, actor.ID)
	return s.refs.taskView(ctx, t, now)
}

func (s *taskService) Update(ctx context.Context, actor Actor, id int64, patch TaskPatch) (*models.TaskView, error) {
	t, p, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := checkAssignee(p, patch.AssignedTo); err != nil {
		return nil, err
	}
	prevStatus, prevAssignee := t.Status, t.AssignedTo
	reassigned := patch.AssignedTo != nil && !t.IsAssignedTo(*patch.AssignedTo)

	if patch.Title != nil {
		t.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		t.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.AssignedTo != nil {
		t.AssignedTo = patch.AssignedTo
	}
	if patch.DueDate != nil {
		t.DueDate = patch.DueDate
	}
	if patch.Tags != nil {
		t.Tags = patch.Tags
	}
	if patch.EstimatedHours != nil {
		t.EstimatedHours = patch.EstimatedHours
	}
	if patch.ActualHours != nil {
		t.ActualHours = *patch.ActualHours
	}
	if t.Status == models.StatusCompleted && t.ActualHours == 0 && t.EstimatedHours != nil {
		t.ActualHours = *t.EstimatedHours
	}
	now := s.now()
	t.UpdatedAt = now

	if err := s.store.Tasks.Update(ctx, t); err != nil {
		return nil, storeErr(err, "Task")
	}

	if reassigned {
		s.notify.TaskAssigned(ctx, t, p, actor.ID)
	}
	if patch.Status != nil && *patch.Status == models.StatusCompleted &&
		(s.policy == CompletionAlways || prevStatus != models.StatusCompleted) {
		s.notify.TaskCompleted(ctx, t, prevAssignee)
	}
	return s.refs.taskView(ctx, t, now)
}

func (s *taskService) Delete(ctx context.Context, actor Actor, id int64) error {
	t, err := s.store.Tasks.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, "Task")
	}
	p, err := s.store.Projects.GetByID(ctx, t.ProjectID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	if err := authz.RequireTaskDeleter(p, t, actor.ID); err != nil {
		return err
	}
	return storeErr(s.store.Tasks.Delete(ctx, id), "Task")
}

func (s *taskService) AddComment(ctx context.Context, actor Actor, taskID int64, in CommentInput) (*models.CommentView, error) {
	t, _, err := s.load(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	var parent *models.Comment
	if in.ParentID != nil {
		parent, err = s.store.Comments.GetByID(ctx, *in.ParentID)
		if errors.Is(err, repositories.ErrNotFound) || (err == nil && parent.TaskID != t.ID) {
			return nil, apperr.Validation(apperr.FieldError{Field: "parentId", Message: "parent comment not found on this task"})
		}
		if err != nil {
			return nil, err
		}
	}
	now := s.now()
	c := &models.Comment{
		Content:   strings.TrimSpace(in.Content),
		Author:    actor.ID,
		TaskID:    t.ID,
		ParentID:  in.ParentID,
		Reactions: []models.Reaction{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Comments.Create(ctx, c); err != nil {
		return nil, err
	}
	if parent != nil {
		if author, err := s.store.Users.GetByID(ctx, actor.ID); err == nil {
			s.notify.CommentReply(ctx, t, author, parent.Author)
		}
	}
	views, err := s.refs.commentViews(ctx, []models.Comment{*c})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *taskService) AddSubtask(ctx context.Context, actor Actor, taskID int64, title string) (*models.TaskView, error) {
	t, _, err := s.load(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	t.Subtasks = append(t.Subtasks, models.Subtask{Title: strings.TrimSpace(title), CreatedAt: now})
	t.UpdatedAt = now
	if err := s.store.Tasks.Update(ctx, t); err != nil {
		return nil, storeErr(err, "Task")
	}
	return s.refs.taskView(ctx, t, now)
}

func (s *taskService) ToggleSubtask(ctx context.Context, actor Actor, taskID int64, index int) (*models.TaskView, error) {
	t, _, err := s.load(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(t.Subtasks) {
		return nil, apperr.Validation(apperr.FieldError{Field: "index", Message: "Invalid subtask index"})
	}
	t.Subtasks[index].Completed = !t.Subtasks[index].Completed
	now := s.now()
	t.UpdatedAt = now
	if err := s.store.Tasks.Update(ctx, t); err != nil {
		return nil, storeErr(err, "Task")
	}
	return s.refs.taskView(ctx, t, now)
}

func (s *taskService) React(ctx context.Context, actor Actor, commentID int64, emoji string) (*models.CommentView, error) {
	return s.updateReactions(ctx, actor, commentID, emoji, models.AddReaction)
}

func (s *taskService) Unreact(ctx context.Context, actor Actor, commentID int64, emoji string) (*models.CommentView, error) {
	return s.updateReactions(ctx, actor, commentID, emoji, models.RemoveReaction)
}

func (s *taskService) updateReactions(ctx context.Context, actor Actor, commentID int64, emoji string,
	apply func([]models.Reaction, string, int64) []models.Reaction) (*models.CommentView, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, apperr.Validation(apperr.FieldError{Field: "emoji", Message: "emoji is required"})
	}
	c, err := s.store.Comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, storeErr(err, "Comment")
	}
	if _, _, err := s.load(ctx, actor, c.TaskID); err != nil {
		return nil, err
	}
	c.Reactions = apply(c.Reactions, emoji, actor.ID)
	c.UpdatedAt = s.now()
	if err := s.store.Comments.UpdateReactions(ctx, c.ID, c.Reactions, c.UpdatedAt); err != nil {
		return nil, storeErr(err, "Comment")
	}
	views, err := s.refs.commentViews(ctx, []models.Comment{*c})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}
