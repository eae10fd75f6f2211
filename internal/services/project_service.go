package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"teamhub/internal/apperr"
	"teamhub/internal/authz"
	"teamhub/internal/models"
	"teamhub/internal/repositories"
)

type ProjectInput struct {
	Name        string
	Description string
	StartDate   time.Time
	EndDate     *time.Time
	Color       string
	Tags        []string
	Settings    models.ProjectSettings
}

// ProjectPatch carries only the fields present in the request.
type ProjectPatch struct {
	Name        *string
	Description *string
	Status      *models.ProjectStatus
	Progress    *int
	EndDate     *time.Time
	Color       *string
	Tags        []string
	Settings    *models.ProjectSettings
}

type ProjectQuery struct {
	Status *models.ProjectStatus
	Search string
	models.PageRequest
}

type ProjectService interface {
	List(ctx context.Context, actor Actor, q ProjectQuery) ([]models.ProjectView, models.Pagination, error)
	Get(ctx context.Context, actor Actor, id int64) (*models.ProjectDetail, error)
	Create(ctx context.Context, actor Actor, in ProjectInput) (*models.ProjectView, error)
	Update(ctx context.Context, actor Actor, id int64, patch ProjectPatch) (*models.ProjectView, error)
	Delete(ctx context.Context, actor Actor, id int64) error

	AddMember(ctx context.Context, actor Actor, id, userID int64, role models.MemberRole) (*models.ProjectView, error)
	UpdateMemberRole(ctx context.Context, actor Actor, id, userID int64, role models.MemberRole) (*models.ProjectView, error)
	RemoveMember(ctx context.Context, actor Actor, id, userID int64) (*models.ProjectView, error)
}

type projectService struct {
	store  *repositories.Store
	notify *Dispatcher
	refs   refs
	now    Clock
}

func NewProjectService(store *repositories.Store, notify *Dispatcher, now Clock) ProjectService {
	return &projectService{
		store:  store,
		notify: notify,
		refs:   refs{users: store.Users, projects: store.Projects},
		now:    clockOrNow(now),
	}
}

func (s *projectService) List(ctx context.Context, actor Actor, q ProjectQuery) ([]models.ProjectView, models.Pagination, error) {
	items, total, err := s.store.Projects.List(ctx, models.ProjectFilter{
		VisibleTo:   actor.ID,
		Status:      q.Status,
		Search:      q.Search,
		PageRequest: q.PageRequest,
	})
	if err != nil {
		return nil, models.Pagination{}, err
	}
	views, err := s.refs.projectViews(ctx, items)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return views, models.NewPagination(q.PageRequest, total), nil
}

func (s *projectService) Get(ctx context.Context, actor Actor, id int64) (*models.ProjectDetail, error) {
	p, err := loadProject(ctx, s.store.Projects, id)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireMembership(p, actor.ID); err != nil {
		return nil, err
	}
	view, err := s.refs.projectView(ctx, p)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.Tasks.ListByProject(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	taskViews, err := s.refs.taskViews(ctx, tasks, s.now())
	if err != nil {
		return nil, err
	}
	return &models.ProjectDetail{ProjectView: *view, Tasks: taskViews}, nil
}

func (s *projectService) Create(ctx context.Context, actor Actor, in ProjectInput) (*models.ProjectView, error) {
	codename, err := NewCodename()
	if err != nil {
		return nil, fmt.Errorf("codename: %w", err)
	}
	color := in.Color
	if color == "" {
		color = models.DefaultProjectColor
	}
	now := s.now()
	p := &models.Project{
		Name:        strings.TrimSpace(in.Name),
		Codename:    codename,
		Description: strings.TrimSpace(in.Description),
		Status:      models.ProjectActive,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Color:       color,
		Tags:        in.Tags,
		Settings:    in.Settings,
		CreatedBy:   actor.ID,
		Members:     []models.ProjectMember{{UserID: actor.ID, Role: models.MemberRoleAdmin, JoinedAt: now}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if err := s.store.Projects.Create(ctx, p); err != nil {
		return nil, err
	}
	return s.refs.projectView(ctx, p)
}

func (s *projectService) Update(ctx context.Context, actor Actor, id int64, patch ProjectPatch) (*models.ProjectView, error) {
	p, err := loadProject(ctx, s.store.Projects, id)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireProjectEditor(p, actor.ID); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		p.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Progress != nil {
		p.Progress = *patch.Progress
	}
	if patch.EndDate != nil {
		p.EndDate = patch.EndDate
	}
	if patch.Color != nil {
		p.Color = *patch.Color
	}
	if patch.Tags != nil {
		p.Tags = patch.Tags
	}
	if patch.Settings != nil {
		p.Settings = *patch.Settings
	}
	p.UpdatedAt = s.now()

	if err := s.store.Projects.Update(ctx, p); err != nil {
		return nil, storeErr(err, "Project")
	}
	return s.refs.projectView(ctx, p)
}

func (s *projectService) Delete(ctx context.Context, actor Actor, id int64) error {
	p, err := loadProject(ctx, s.store.Projects, id)
	if err != nil {
		return err
	}
	if err := authz.RequireProjectOwner(p, actor.ID); err != nil {
		return err
	}
	return storeErr(s.store.Projects.Delete(ctx, id), "Project")
}

// adminGate loads the project and checks the actor may manage its roster.
func (s *projectService) adminGate(ctx context.Context, actor Actor, id int64) (*models.Project, error) {
	p, err := loadProject(ctx, s.store.Projects, id)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireAdmin(p, actor.ID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *projectService) reload(ctx context.Context, id int64) (*models.ProjectView, error) {
	p, err := loadProject(ctx, s.store.Projects, id)
	if err != nil {
		return nil, err
	}
	return s.refs.projectView(ctx, p)
}

func (s *projectService) AddMember(ctx context.Context, actor Actor, id, userID int64, role models.MemberRole) (*models.ProjectView, error) {
	if role == "" {
		role = models.MemberRoleMember
	}
	p, err := s.adminGate(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Users.GetByID(ctx, userID); err != nil {
		return nil, storeErr(err, "User")
	}
	err = s.store.Projects.AddMember(ctx, id, models.ProjectMember{UserID: userID, Role: role, JoinedAt: s.now()})
	switch {
	case err == nil:
	case errors.Is(err, repositories.ErrDuplicate):
		return nil, apperr.Conflict("User is already a member of this project")
	default:
		return nil, storeErr(err, "Project")
	}
	s.notify.MemberAdded(ctx, p, userID)
	return s.reload(ctx, id)
}

func (s *projectService) UpdateMemberRole(ctx context.Context, actor Actor, id, userID int64, role models.MemberRole) (*models.ProjectView, error) {
	p, err := s.adminGate(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Projects.UpdateMemberRole(ctx, id, userID, role); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("User is not a member of this project")
		}
		return nil, err
	}
	s.notify.MemberRoleChanged(ctx, p, userID, role)
	return s.reload(ctx, id)
}

func (s *projectService) RemoveMember(ctx context.Context, actor Actor, id, userID int64) (*models.ProjectView, error) {
	if _, err := s.adminGate(ctx, actor, id); err != nil {
		return nil, err
	}
	if err := s.store.Projects.RemoveMember(ctx, id, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("User is not a member of this project")
		}
		return nil, err
	}
	return s.reload(ctx, id)
}
