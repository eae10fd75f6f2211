package memstore

import (
	"context"
	"time"

	"teamhub/internal/models"
	"teamhub/internal/repositories"
)

type messageRepo struct{ *db }

func cloneMessage(m *models.Message) models.Message {
	c := *m
	c.ParentID = cloneInt64Ptr(m.ParentID)
	c.EditedAt = cloneTime(m.EditedAt)
	c.Reactions = cloneReactions(m.Reactions)
	c.Mentions = cloneInt64s(m.Mentions)
	return c
}

func (r *messageRepo) Post(_ context.Context, m *models.Message) error {
	if err := models.ValidateMessage(m); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.discussions[m.DiscussionID]
	if !ok {
		return repositories.ErrNotFound
	}
	m.ID = r.nextID()
	c := cloneMessage(m)
	r.messages[m.ID] = &c

	d.LastMessageAt = m.CreatedAt
	d.MessageCount++
	if !d.HasParticipant(m.Author) {
		d.Participants = append(d.Participants, m.Author)
	}
	d.UpdatedAt = m.CreatedAt
	return nil
}

func (r *messageRepo) GetByID(_ context.Context, id int64) (*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := cloneMessage(m)
	return &c, nil
}

func (r *messageRepo) ListByDiscussion(_ context.Context, discussionID int64) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Message{}
	for _, m := range r.messages {
		if m.DiscussionID == discussionID {
			out = append(out, cloneMessage(m))
		}
	}
	oldestFirst(out, func(m models.Message) time.Time { return m.CreatedAt }, func(m models.Message) int64 { return m.ID })
	return out, nil
}
