package models

import "time"

// Response projections. Foreign keys are resolved into refs by the service layer;
// computed fields are filled at read time and never stored.

type ProjectRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (p *Project) Ref() ProjectRef {
	return ProjectRef{ID: p.ID, Name: p.Name, Color: p.Color}
}

type MemberView struct {
	User     UserRef    `json:"user"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joinedAt"`
}

type ProjectView struct {
	Project
	CreatedBy   UserRef      `json:"createdBy"`
	Members     []MemberView `json:"members"`
	MemberCount int          `json:"memberCount"`
}

type TaskView struct {
	Task
	Project              ProjectRef `json:"project"`
	AssignedTo           *UserRef   `json:"assignedTo,omitempty"`
	CreatedBy            UserRef    `json:"createdBy"`
	CompletionPercentage int        `json:"completionPercentage"`
	IsOverdue            bool       `json:"isOverdue"`
}

type CommentView struct {
	Comment
	Author UserRef `json:"author"`
}

type DiscussionView struct {
	Discussion
	Project      ProjectRef `json:"project"`
	CreatedBy    UserRef    `json:"createdBy"`
	Participants []UserRef  `json:"participants"`
}

type MessageView struct {
	Message
	Author   UserRef   `json:"author"`
	Mentions []UserRef `json:"mentions"`
}

// ProjectDetail is a project together with its tasks.
type ProjectDetail struct {
	ProjectView
	Tasks []TaskView `json:"tasks"`
}
