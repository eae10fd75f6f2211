package memstore

import (
	"context"
	"time"

	"teamhub/internal/models"
	"teamhub/internal/repositories"
)

type taskRepo struct{ *db }

func cloneTask(t *models.Task) models.Task {
	c := *t
	c.AssignedTo = cloneInt64Ptr(t.AssignedTo)
	c.DueDate = cloneTime(t.DueDate)
	if t.EstimatedHours != nil {
		v := *t.EstimatedHours
		c.EstimatedHours = &v
	}
	c.Tags = cloneStrings(t.Tags)
	c.Subtasks = append([]models.Subtask{}, t.Subtasks...)
	c.Dependencies = cloneInt64s(t.Dependencies)
	c.Watchers = cloneInt64s(t.Watchers)
	return c
}

func (r *taskRepo) Create(_ context.Context, t *models.Task) error {
	if err := models.ValidateTask(t); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[t.ProjectID]; !ok {
		return repositories.ErrNotFound
	}
	t.ID = r.nextID()
	c := cloneTask(t)
	r.tasks[t.ID] = &c
	return nil
}

func (r *taskRepo) GetByID(_ context.Context, id int64) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := cloneTask(t)
	return &c, nil
}

func (r *taskRepo) List(_ context.Context, f models.TaskFilter) ([]models.Task, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := []models.Task{}
	for _, t := range r.tasks {
		if !hasID(f.ProjectIDs, t.ProjectID) {
			continue
		}
		if f.AssignedTo != nil && !t.IsAssignedTo(*f.AssignedTo) {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.Priority != nil && t.Priority != *f.Priority {
			continue
		}
		matched = append(matched, cloneTask(t))
	}
	newestFirst(matched, func(t models.Task) time.Time { return t.CreatedAt }, func(t models.Task) int64 { return t.ID })
	return paginate(matched, f.PageRequest), len(matched), nil
}

func (r *taskRepo) ListByProject(ctx context.Context, projectID int64) ([]models.Task, error) {
	tasks, _, err := r.List(ctx, models.TaskFilter{ProjectIDs: []int64{projectID}})
	return tasks, err
}

func (r *taskRepo) Update(_ context.Context, t *models.Task) error {
	if err := models.ValidateTask(t); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.tasks[t.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	c := cloneTask(t)
	c.ProjectID, c.CreatedBy, c.CreatedAt = cur.ProjectID, cur.CreatedBy, cur.CreatedAt
	r.tasks[t.ID] = &c
	return nil
}

func (r *taskRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return repositories.ErrNotFound
	}
	for cid, c := range r.comments {
		if c.TaskID == id {
			delete(r.comments, cid)
		}
	}
	delete(r.tasks, id)
	return nil
}
