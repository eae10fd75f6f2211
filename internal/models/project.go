package models

import "time"

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectOnHold    ProjectStatus = "on-hold"
	ProjectCancelled ProjectStatus = "cancelled"
)

// MemberRole is the project-scoped role; distinct from the site-wide UserRole.
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
	MemberRoleViewer MemberRole = "viewer"
)

const DefaultProjectColor = "#6366f1"

type ProjectMember struct {
	UserID   int64      `json:"userId"`
	Role     MemberRole `json:"role" validate:"oneof=admin member viewer" msg:"invalid role"`
	JoinedAt time.Time  `json:"joinedAt"`
}

type ProjectSettings struct {
	IsPublic           bool `json:"isPublic"`
	AllowMemberInvites bool `json:"allowMemberInvites"`
}

type Project struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name" validate:"notblank,max=100" msg:"project name is required and cannot exceed 100 characters"`
	Codename    string          `json:"codename" validate:"notblank,max=50" msg:"codename is required and cannot exceed 50 characters"`
	Description string          `json:"description" validate:"notblank,max=500" msg:"description is required and cannot exceed 500 characters"`
	Status      ProjectStatus   `json:"status" validate:"oneof=active completed on-hold cancelled" msg:"invalid status"`
	Progress    int             `json:"progress" validate:"gte=0,lte=100" msg:"progress must be between 0 and 100"`
	StartDate   time.Time       `json:"startDate" validate:"required" msg:"valid start date is required"`
	EndDate     *time.Time      `json:"endDate,omitempty"`
	Color       string          `json:"color" validate:"color" msg:"valid hex color is required"`
	Tags        []string        `json:"tags" validate:"dive,max=20" msg:"tag cannot exceed 20 characters"`
	Settings    ProjectSettings `json:"settings"`
	CreatedBy   int64           `json:"createdBy"`
	Members     []ProjectMember `json:"members" validate:"unique=UserID,dive" msg:"user appears more than once in members"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (p *Project) MemberCount() int {
	return len(p.Members)
}

// Member returns the roster entry for userID, or nil.
func (p *Project) Member(userID int64) *ProjectMember {
	for i := range p.Members {
		if p.Members[i].UserID == userID {
			return &p.Members[i]
		}
	}
	return nil
}

type ProjectFilter struct {
	// VisibleTo restricts the result to projects the user created or is a member of.
	VisibleTo int64
	Status    *ProjectStatus
	Search    string
	PageRequest
}
