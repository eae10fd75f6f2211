package models

import "time"

type Discussion struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title" validate:"notblank,max=200" msg:"discussion title is required and cannot exceed 200 characters"`
	ProjectID     int64     `json:"projectId" validate:"gt=0" msg:"valid project ID is required"`
	CreatedBy     int64     `json:"createdBy"`
	IsPinned      bool      `json:"isPinned"`
	IsLocked      bool      `json:"isLocked"`
	Tags          []string  `json:"tags" validate:"dive,max=20" msg:"tag cannot exceed 20 characters"`
	Participants  []int64   `json:"participants"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	MessageCount  int       `json:"messageCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (d *Discussion) HasParticipant(userID int64) bool {
	for _, p := range d.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

type DiscussionFilter struct {
	ProjectIDs []int64
	Search     string
	PageRequest
}

type Message struct {
	ID           int64      `json:"id"`
	Content      string     `json:"content" validate:"notblank,max=2000" msg:"message content is required and cannot exceed 2000 characters"`
	Author       int64      `json:"author"`
	DiscussionID int64      `json:"discussionId" validate:"gt=0" msg:"discussion is required"`
	ParentID     *int64     `json:"parentId,omitempty"`
	IsEdited     bool       `json:"isEdited"`
	EditedAt     *time.Time `json:"editedAt,omitempty"`
	Reactions    []Reaction `json:"reactions"`
	Mentions     []int64    `json:"mentions"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
