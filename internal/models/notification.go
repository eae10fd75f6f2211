package models

import "time"

type NotificationType string

const (
	NotifTaskAssigned      NotificationType = "task_assigned"
	NotifTaskCompleted     NotificationType = "task_completed"
	NotifTaskDueSoon       NotificationType = "task_due_soon"
	NotifTaskOverdue       NotificationType = "task_overdue"
	NotifProjectUpdate     NotificationType = "project_update"
	NotifProjectMilestone  NotificationType = "project_milestone"
	NotifDiscussionReply   NotificationType = "discussion_reply"
	NotifDiscussionMention NotificationType = "discussion_mention"
	NotifTeamInvite        NotificationType = "team_invite"
	NotifTeamRoleChange    NotificationType = "team_role_change"
	NotifCommentReply      NotificationType = "comment_reply"
	NotifFileUploaded      NotificationType = "file_uploaded"
	NotifDeadlineReminder  NotificationType = "deadline_reminder"
)

type EntityType string

const (
	EntityProject    EntityType = "project"
	EntityTask       EntityType = "task"
	EntityDiscussion EntityType = "discussion"
	EntityMessage    EntityType = "message"
	EntityComment    EntityType = "comment"
	EntityUser       EntityType = "user"
)

type RelatedEntity struct {
	Type EntityType `json:"type"`
	ID   int64      `json:"id"`
}

type Notification struct {
	ID            int64             `json:"id"`
	Type          NotificationType  `json:"type" validate:"oneof=task_assigned task_completed task_due_soon task_overdue project_update project_milestone discussion_reply discussion_mention team_invite team_role_change comment_reply file_uploaded deadline_reminder" msg:"invalid notification type"`
	Title         string            `json:"title" validate:"notblank,max=200" msg:"title is required and cannot exceed 200 characters"`
	Message       string            `json:"message" validate:"notblank,max=500" msg:"message is required and cannot exceed 500 characters"`
	UserID        int64             `json:"userId" validate:"gt=0" msg:"recipient is required"`
	IsRead        bool              `json:"isRead"`
	ReadAt        *time.Time        `json:"readAt,omitempty"`
	Priority      Priority          `json:"priority" validate:"oneof=low medium high urgent" msg:"invalid priority"`
	ActionURL     string            `json:"actionUrl,omitempty"`
	RelatedEntity *RelatedEntity    `json:"relatedEntity,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	ExpiresAt     time.Time         `json:"expiresAt"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// IsExpired reports whether the notification is past its TTL at now.
func (n *Notification) IsExpired(now time.Time) bool {
	return !now.Before(n.ExpiresAt)
}

type NotificationFilter struct {
	UserID   int64
	Type     *NotificationType
	IsRead   *bool
	Priority *Priority
	// Now is the reference instant for excluding expired notifications.
	Now time.Time
	PageRequest
}
