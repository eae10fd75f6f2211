// internal/models/task.go
package models

import (
	"math"
	"time"
)

// TaskStatus defines the possible statuses for a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in-progress"
	StatusReview     TaskStatus = "review"
	StatusCompleted  TaskStatus = "completed"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Subtask struct {
	Title     string    `json:"title" validate:"notblank" msg:"subtask title is required"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// Task represents the structure of a task in the system.
type Task struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title" validate:"notblank,max=200" msg:"task title is required and cannot exceed 200 characters"`
	Description    string     `json:"description" validate:"max=1000" msg:"description cannot exceed 1000 characters"`
	Status         TaskStatus `json:"status" validate:"oneof=todo in-progress review completed" msg:"invalid status"`
	Priority       Priority   `json:"priority" validate:"oneof=low medium high urgent" msg:"invalid priority"`
	ProjectID      int64      `json:"projectId" validate:"gt=0" msg:"valid project ID is required"`
	AssignedTo     *int64     `json:"assignedTo,omitempty"`
	CreatedBy      int64      `json:"createdBy"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	Tags           []string   `json:"tags" validate:"dive,max=20" msg:"tag cannot exceed 20 characters"`
	EstimatedHours *float64   `json:"estimatedHours,omitempty" validate:"omitempty,gte=0" msg:"estimated hours cannot be negative"`
	ActualHours    float64    `json:"actualHours" validate:"gte=0" msg:"actual hours cannot be negative"`
	Subtasks       []Subtask  `json:"subtasks" validate:"dive"`
	Dependencies   []int64    `json:"dependencies"`
	Watchers       []int64    `json:"watchers"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// CompletionPercentage is derived from subtasks, or from status when there are none.
func (t *Task) CompletionPercentage() int {
	if len(t.Subtasks) == 0 {
		if t.Status == StatusCompleted {
			return 100
		}
		return 0
	}
	done := 0
	for _, s := range t.Subtasks {
		if s.Completed {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(t.Subtasks)) * 100))
}

func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.Status != StatusCompleted && now.After(*t.DueDate)
}

func (t *Task) IsAssignedTo(userID int64) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// TaskFilter defines the available parameters for filtering tasks.
type TaskFilter struct {
	// ProjectIDs limits the result to these projects. Empty means no task is visible.
	ProjectIDs []int64
	AssignedTo *int64
	Status     *TaskStatus
	Priority   *Priority
	PageRequest
}
