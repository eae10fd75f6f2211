package services

import (
	"context"
	"errors"
	"time"

	"teamhub/internal/apperr"
	"teamhub/internal/authz"
	"teamhub/internal/models"
	"teamhub/internal/repositories"
)

// Actor is the authenticated caller as seen by the service layer.
type Actor struct {
	ID   int64
	Role string
}

func (a Actor) IsSiteAdmin() bool { return authz.IsSiteAdmin(a.Role) }

type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// storeErr turns repository sentinels into the api error taxonomy.
func storeErr(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return apperr.NotFound(entity + " not found")
	case errors.Is(err, repositories.ErrDuplicate):
		return apperr.Conflict(entity + " already exists")
	}
	return err
}

func loadProject(ctx context.Context, repo repositories.ProjectRepository, id int64) (*models.Project, error) {
	p, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Project")
	}
	return p, nil
}

// projectForCreate resolves the project a new child entity is filed under. A missing
// project and a foreign one look the same to the caller.
func projectForCreate(ctx context.Context, repo repositories.ProjectRepository, id, userID int64) (*models.Project, error) {
	p, err := repo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) || (err == nil && !authz.IsMember(p, userID)) {
		return nil, apperr.Forbidden("Access denied to project")
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// visibleProjects narrows an optional project filter to what userID may see.
func visibleProjects(ctx context.Context, repo repositories.ProjectRepository, userID int64, projectID *int64) ([]int64, error) {
	if projectID != nil {
		p, err := projectForCreate(ctx, repo, *projectID, userID)
		if err != nil {
			return nil, err
		}
		return []int64{p.ID}, nil
	}
	return repo.VisibleIDs(ctx, userID)
}
