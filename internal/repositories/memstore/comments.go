package memstore

import (
	"context"
	"time"

	"teamhub/internal/models"
	"teamhub/internal/repositories"
)

type commentRepo struct{ *db }

func cloneComment(c *models.Comment) models.Comment {
	out := *c
	out.ParentID = cloneInt64Ptr(c.ParentID)
	out.EditedAt = cloneTime(c.EditedAt)
	out.Reactions = cloneReactions(c.Reactions)
	return out
}

func (r *commentRepo) Create(_ context.Context, c *models.Comment) error {
	if err := models.ValidateComment(c); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[c.TaskID]; !ok {
		return repositories.ErrNotFound
	}
	c.ID = r.nextID()
	stored := cloneComment(c)
	r.comments[c.ID] = &stored
	return nil
}

func (r *commentRepo) GetByID(_ context.Context, id int64) (*models.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.comments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := cloneComment(c)
	return &out, nil
}

func (r *commentRepo) ListByTask(_ context.Context, taskID int64) ([]models.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Comment{}
	for _, c := range r.comments {
		if c.TaskID == taskID {
			out = append(out, cloneComment(c))
		}
	}
	oldestFirst(out, func(c models.Comment) time.Time { return c.CreatedAt }, func(c models.Comment) int64 { return c.ID })
	return out, nil
}

func (r *commentRepo) UpdateReactions(_ context.Context, id int64, reactions []models.Reaction, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.Reactions = cloneReactions(reactions)
	c.UpdatedAt = at
	return nil
}
