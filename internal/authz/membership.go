package authz

import (
	"teamhub/internal/apperr"
	"teamhub/internal/models"
)

// IsMember is true iff userID created the project or is on its roster.
func IsMember(p *models.Project, userID int64) bool {
	if p == nil {
		return false
	}
	return p.CreatedBy == userID || p.Member(userID) != nil
}

// IsAdmin is true iff userID's roster role is admin. Creating the project does not count
// by itself; the creator is admin only through the roster entry added at creation.
func IsAdmin(p *models.Project, userID int64) bool {
	if p == nil {
		return false
	}
	m := p.Member(userID)
	return m != nil && m.Role == models.MemberRoleAdmin
}

func IsCreator(p *models.Project, userID int64) bool {
	return p != nil && p.CreatedBy == userID
}

func RequireMembership(p *models.Project, userID int64) error {
	if !IsMember(p, userID) {
		return apperr.Forbidden("Access denied")
	}
	return nil
}

func RequireAdmin(p *models.Project, userID int64) error {
	if !IsAdmin(p, userID) {
		return apperr.Forbidden("Insufficient permissions")
	}
	return nil
}

// RequireProjectEditor gates project field updates: admin or creator.
func RequireProjectEditor(p *models.Project, userID int64) error {
	if !IsAdmin(p, userID) && !IsCreator(p, userID) {
		return apperr.Forbidden("Insufficient permissions")
	}
	return nil
}

func RequireProjectOwner(p *models.Project, userID int64) error {
	if !IsCreator(p, userID) {
		return apperr.Forbidden("Only project creator can delete the project")
	}
	return nil
}

// RequireTaskDeleter allows the task's creator or a project admin.
func RequireTaskDeleter(p *models.Project, t *models.Task, userID int64) error {
	if err := RequireMembership(p, userID); err != nil {
		return err
	}
	if t.CreatedBy != userID && !IsAdmin(p, userID) {
		return apperr.Forbidden("Insufficient permissions")
	}
	return nil
}

// RequireSelfOrSiteAdmin gates profile reads and edits.
func RequireSelfOrSiteAdmin(actorID int64, actorRole string, targetID int64) error {
	if actorID != targetID && !IsSiteAdmin(actorRole) {
		return apperr.Forbidden("Access denied")
	}
	return nil
}

func RequireSelf(actorID, targetID int64) error {
	if actorID != targetID {
		return apperr.Forbidden("Can only update your own status")
	}
	return nil
}

func RequireSiteAdmin(actorRole string) error {
	if !IsSiteAdmin(actorRole) {
		return apperr.Forbidden("Admin role required")
	}
	return nil
}
