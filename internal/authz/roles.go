package authz

import "teamhub/internal/models"

// Site-wide account roles. Distinct from project-scoped member roles.
const (
	RoleAdmin  = string(models.UserRoleAdmin)
	RoleMember = string(models.UserRoleMember)
	RoleViewer = string(models.UserRoleViewer)
)

func IsSiteAdmin(role string) bool {
	return role == RoleAdmin
}

func IsReadOnly(role string) bool {
	return role == RoleViewer
}
