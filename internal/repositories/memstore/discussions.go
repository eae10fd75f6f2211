package memstore

import (
	"context"
	"sort"
	"time"

	"teamhub/internal/models"
	"teamhub/internal/repositories"
)

type discussionRepo struct{ *db }

func cloneDiscussion(d *models.Discussion) models.Discussion {
	c := *d
	c.Tags = cloneStrings(d.Tags)
	c.Participants = cloneInt64s(d.Participants)
	return c
}

func (r *discussionRepo) Create(_ context.Context, d *models.Discussion) error {
	if err := models.ValidateDiscussion(d); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[d.ProjectID]; !ok {
		return repositories.ErrNotFound
	}
	d.ID = r.nextID()
	c := cloneDiscussion(d)
	r.discussions[d.ID] = &c
	return nil
}

func (r *discussionRepo) GetByID(_ context.Context, id int64) (*models.Discussion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.discussions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := cloneDiscussion(d)
	return &c, nil
}

func (r *discussionRepo) List(_ context.Context, f models.DiscussionFilter) ([]models.Discussion, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := []models.Discussion{}
	for _, d := range r.discussions {
		if !hasID(f.ProjectIDs, d.ProjectID) {
			continue
		}
		if f.Search != "" && !contains(d.Title, f.Search) {
			continue
		}
		matched = append(matched, cloneDiscussion(d))
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		if !a.LastMessageAt.Equal(b.LastMessageAt) {
			return a.LastMessageAt.After(b.LastMessageAt)
		}
		return a.ID > b.ID
	})
	return paginate(matched, f.PageRequest), len(matched), nil
}

func (r *discussionRepo) AddParticipant(_ context.Context, id, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.discussions[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if !d.HasParticipant(userID) {
		d.Participants = append(d.Participants, userID)
	}
	return nil
}

func (r *discussionRepo) SetPinned(_ context.Context, id int64, pinned bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.discussions[id]
	if !ok {
		return repositories.ErrNotFound
	}
	d.IsPinned = pinned
	d.UpdatedAt = at
	return nil
}

func (r *discussionRepo) SetLocked(_ context.Context, id int64, locked bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.discussions[id]
	if !ok {
		return repositories.ErrNotFound
	}
	d.IsLocked = locked
	d.UpdatedAt = at
	return nil
}
