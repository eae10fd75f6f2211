package services

import (
	"context"
	"strings"

	"teamhub/internal/apperr"
	"teamhub/internal/authz"
	"teamhub/internal/models"
	"teamhub/internal/repositories"
)

type UserPatch struct {
	Name           *string
	Department     *string
	Location       *string
	Phone          *string
	Avatar         *string
	Role           *models.UserRole
	Status         *models.UserStatus
	TelegramChatID *int64
	NotifyTelegram *bool
	NotifyEmail    *bool
}

type UserQuery struct {
	Search string
	Role   *models.UserRole
	Status *models.UserStatus
	models.PageRequest
}

type UserService interface {
	List(ctx context.Context, actor Actor, q UserQuery) ([]models.User, models.Pagination, error)
	// Get returns the profile with every project the user created or belongs to.
	Get(ctx context.Context, actor Actor, id int64) (*models.User, []models.ProjectView, error)
	Update(ctx context.Context, actor Actor, id int64, patch UserPatch) (*models.User, error)
	UpdateStatus(ctx context.Context, actor Actor, id int64, status models.UserStatus) (*models.User, error)
	// Delete hands the user's projects over to the acting admin.
	Delete(ctx context.Context, actor Actor, id int64) error
}

type userService struct {
	store *repositories.Store
	refs  refs
	now   Clock
}

func NewUserService(store *repositories.Store, now Clock) UserService {
	return &userService{
		store: store,
		refs:  refs{users: store.Users, projects: store.Projects},
		now:   clockOrNow(now),
	}
}

func (s *userService) List(ctx context.Context, actor Actor, q UserQuery) ([]models.User, models.Pagination, error) {
	if err := authz.RequireSiteAdmin(actor.Role); err != nil {
		return nil, models.Pagination{}, err
	}
	users, total, err := s.store.Users.List(ctx, models.UserFilter{
		Search:      q.Search,
		Role:        q.Role,
		Status:      q.Status,
		PageRequest: q.PageRequest,
	})
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return users, models.NewPagination(q.PageRequest, total), nil
}

func (s *userService) Get(ctx context.Context, actor Actor, id int64) (*models.User, []models.ProjectView, error) {
	u, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, nil, storeErr(err, "User")
	}
	if err := authz.RequireSelfOrSiteAdmin(actor.ID, actor.Role, id); err != nil {
		return nil, nil, err
	}
	projects, _, err := s.store.Projects.List(ctx, models.ProjectFilter{VisibleTo: id})
	if err != nil {
		return nil, nil, err
	}
	views, err := s.refs.projectViews(ctx, projects)
	if err != nil {
		return nil, nil, err
	}
	return u, views, nil
}

func (s *userService) Update(ctx context.Context, actor Actor, id int64, patch UserPatch) (*models.User, error) {
	u, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "User")
	}
	if err := authz.RequireSelfOrSiteAdmin(actor.ID, actor.Role, id); err != nil {
		return nil, err
	}
	if patch.Role != nil && !actor.IsSiteAdmin() {
		return nil, apperr.Forbidden("Only admin can change user roles")
	}
	if patch.Status != nil && !actor.IsSiteAdmin() {
		return nil, apperr.Forbidden("Only admin can change user status")
	}

	if patch.Name != nil {
		u.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Department != nil {
		u.Department = strings.TrimSpace(*patch.Department)
	}
	if patch.Location != nil {
		u.Location = strings.TrimSpace(*patch.Location)
	}
	if patch.Phone != nil {
		u.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.Avatar != nil {
		u.Avatar = *patch.Avatar
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.Status != nil {
		u.Status = *patch.Status
	}
	if patch.TelegramChatID != nil {
		u.TelegramChatID = *patch.TelegramChatID
	}
	if patch.NotifyTelegram != nil {
		u.NotifyTelegram = *patch.NotifyTelegram
	}
	if patch.NotifyEmail != nil {
		u.NotifyEmail = *patch.NotifyEmail
	}
	u.UpdatedAt = s.now()

	if err := s.store.Users.Update(ctx, u); err != nil {
		return nil, storeErr(err, "User")
	}
	return u, nil
}

func (s *userService) UpdateStatus(ctx context.Context, actor Actor, id int64, status models.UserStatus) (*models.User, error) {
	if err := authz.RequireSelf(actor.ID, id); err != nil {
		return nil, err
	}
	if err := s.store.Users.UpdateStatus(ctx, id, status, s.now()); err != nil {
		return nil, storeErr(err, "User")
	}
	u, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "User")
	}
	return u, nil
}

func (s *userService) Delete(ctx context.Context, actor Actor, id int64) error {
	if err := authz.RequireSiteAdmin(actor.Role); err != nil {
		return err
	}
	if _, err := s.store.Users.GetByID(ctx, id); err != nil {
		return storeErr(err, "User")
	}
	if actor.ID == id {
		return apperr.Conflict("Cannot delete your own account")
	}
	return storeErr(s.store.Users.Delete(ctx, id, actor.ID), "User")
}
