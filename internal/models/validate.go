package models

import (
	"teamhub/internal/apperr"
	"teamhub/internal/validation"
)

// The Validate* functions are run by every store implementation before a write.
// Field rules live in the `validate:` tags; only cross-field rules are checked here.

func validated(obj interface{}, extra ...apperr.FieldError) error {
	fields := append(validation.Check(obj), extra...)
	if len(fields) == 0 {
		return nil
	}
	return apperr.Validation(fields...)
}

func ValidateUser(u *User) error { return validated(u) }

func ValidateProject(p *Project) error {
	var extra []apperr.FieldError
	if p.EndDate != nil && !p.EndDate.After(p.StartDate) {
		extra = append(extra, apperr.FieldError{Field: "endDate", Message: "end date must be after start date"})
	}
	return validated(p, extra...)
}

func ValidateTask(t *Task) error {
	var extra []apperr.FieldError
	if t.DueDate != nil && !t.DueDate.After(t.CreatedAt) {
		extra = append(extra, apperr.FieldError{Field: "dueDate", Message: "due date must be after creation date"})
	}
	return validated(t, extra...)
}

func ValidateMember(m *ProjectMember) error { return validated(m) }

func ValidateComment(c *Comment) error { return validated(c) }

func ValidateDiscussion(d *Discussion) error { return validated(d) }

func ValidateMessage(m *Message) error { return validated(m) }

func ValidateNotification(n *Notification) error { return validated(n) }
