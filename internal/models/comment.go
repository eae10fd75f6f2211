package models

import "time"

type Reaction struct {
	Emoji string  `json:"emoji"`
	Users []int64 `json:"users"`
}

// AddReaction records userID under emoji. Adding twice is a no-op.
func AddReaction(rs []Reaction, emoji string, userID int64) []Reaction {
	for i := range rs {
		if rs[i].Emoji != emoji {
			continue
		}
		for _, u := range rs[i].Users {
			if u == userID {
				return rs
			}
		}
		rs[i].Users = append(rs[i].Users, userID)
		return rs
	}
	return append(rs, Reaction{Emoji: emoji, Users: []int64{userID}})
}

// RemoveReaction drops userID from emoji and removes the emoji once nobody is left.
func RemoveReaction(rs []Reaction, emoji string, userID int64) []Reaction {
	out := make([]Reaction, 0, len(rs))
	for _, r := range rs {
		if r.Emoji == emoji {
			users := make([]int64, 0, len(r.Users))
			for _, u := range r.Users {
				if u != userID {
					users = append(users, u)
				}
			}
			if len(users) == 0 {
				continue
			}
			r.Users = users
		}
		out = append(out, r)
	}
	return out
}

type Comment struct {
	ID        int64      `json:"id"`
	Content   string     `json:"content" validate:"notblank,max=1000" msg:"comment content is required and cannot exceed 1000 characters"`
	Author    int64      `json:"author"`
	TaskID    int64      `json:"taskId" validate:"gt=0" msg:"task is required"`
	ParentID  *int64     `json:"parentId,omitempty"`
	IsEdited  bool       `json:"isEdited"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
	Reactions []Reaction `json:"reactions"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
