package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"teamhub/internal/models"
	"teamhub/internal/repositories"
)

type TeamOverview struct {
	Members []models.User    `json:"members"`
	Stats   models.TeamStats `json:"stats"`
}

type TeamQuery struct {
	Search string
	Role   *models.UserRole
	Status *models.UserStatus
}

type TeamService interface {
	Overview(ctx context.Context, q TeamQuery) (*TeamOverview, error)
}

type teamService struct {
	users    repositories.UserRepository
	projects repositories.ProjectRepository
}

func NewTeamService(users repositories.UserRepository, projects repositories.ProjectRepository) TeamService {
	return &teamService{users: users, projects: projects}
}

// Overview runs the member query and the stat counters concurrently.
func (s *teamService) Overview(ctx context.Context, q TeamQuery) (*TeamOverview, error) {
	var out TeamOverview
	active := models.UserStatusActive
	admin := models.UserRoleAdmin

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		members, _, err := s.users.List(ctx, models.UserFilter{Search: q.Search, Role: q.Role, Status: q.Status})
		out.Members = members
		return err
	})
	g.Go(func() (err error) {
		out.Stats.TotalMembers, err = s.users.Count(ctx, nil, nil)
		return err
	})
	g.Go(func() (err error) {
		out.Stats.ActiveMembers, err = s.users.Count(ctx, nil, &active)
		return err
	})
	g.Go(func() (err error) {
		out.Stats.AdminCount, err = s.users.Count(ctx, &admin, nil)
		return err
	})
	g.Go(func() (err error) {
		out.Stats.Departments, err = s.users.CountDepartments(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Stats.TotalProjects, err = s.projects.Count(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
