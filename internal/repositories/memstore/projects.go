package memstore

import (
	"context"
	"time"

	"teamhub/internal/models"
	"teamhub/internal/repositories"
)

type projectRepo struct{ *db }

func cloneProject(p *models.Project) models.Project {
	c := *p
	c.EndDate = cloneTime(p.EndDate)
	c.Tags = cloneStrings(p.Tags)
	c.Members = append([]models.ProjectMember{}, p.Members...)
	return c
}

func (r *projectRepo) Create(_ context.Context, p *models.Project) error {
	if err := models.ValidateProject(p); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID()
	c := cloneProject(p)
	r.projects[p.ID] = &c
	return nil
}

func (r *projectRepo) GetByID(_ context.Context, id int64) (*models.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := cloneProject(p)
	return &c, nil
}

func visibleTo(p *models.Project, userID int64) bool {
	return p.CreatedBy == userID || p.Member(userID) != nil
}

func (r *projectRepo) List(_ context.Context, f models.ProjectFilter) ([]models.Project, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := []models.Project{}
	for _, p := range r.projects {
		if f.VisibleTo != 0 && !visibleTo(p, f.VisibleTo) {
			continue
		}
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		if f.Search != "" && !contains(p.Name, f.Search) && !contains(p.Description, f.Search) && !contains(p.Codename, f.Search) {
			continue
		}
		matched = append(matched, cloneProject(p))
	}
	newestFirst(matched, func(p models.Project) time.Time { return p.CreatedAt }, func(p models.Project) int64 { return p.ID })
	return paginate(matched, f.PageRequest), len(matched), nil
}

func (r *projectRepo) VisibleIDs(_ context.Context, userID int64) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := []int64{}
	for id, p := range r.projects {
		if visibleTo(p, userID) {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	return ids, nil
}

func (r *projectRepo) Update(_ context.Context, p *models.Project) error {
	if err := models.ValidateProject(p); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.projects[p.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	// roster and ownership have their own operations
	members, createdBy, createdAt, codename := cur.Members, cur.CreatedBy, cur.CreatedAt, cur.Codename
	c := cloneProject(p)
	c.Members, c.CreatedBy, c.CreatedAt, c.Codename = members, createdBy, createdAt, codename
	r.projects[p.ID] = &c
	return nil
}

func (r *projectRepo) AddMember(_ context.Context, projectID int64, m models.ProjectMember) error {
	if err := models.ValidateMember(&m); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return repositories.ErrNotFound
	}
	if p.Member(m.UserID) != nil {
		return repositories.ErrDuplicate
	}
	p.Members = append(p.Members, m)
	return nil
}

func (r *projectRepo) UpdateMemberRole(_ context.Context, projectID, userID int64, role models.MemberRole) error {
	if err := models.ValidateMember(&models.ProjectMember{UserID: userID, Role: role}); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return repositories.ErrNotFound
	}
	m := p.Member(userID)
	if m == nil {
		return repositories.ErrNotFound
	}
	m.Role = role
	return nil
}

func (r *projectRepo) RemoveMember(_ context.Context, projectID, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok || p.Member(userID) == nil {
		return repositories.ErrNotFound
	}
	members := make([]models.ProjectMember, 0, len(p.Members)-1)
	for _, m := range p.Members {
		if m.UserID != userID {
			members = append(members, m)
		}
	}
	p.Members = members
	return nil
}

func (r *projectRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[id]; !ok {
		return repositories.ErrNotFound
	}
	for tid, t := range r.tasks {
		if t.ProjectID != id {
			continue
		}
		for cid, c := range r.comments {
			if c.TaskID == tid {
				delete(r.comments, cid)
			}
		}
		delete(r.tasks, tid)
	}
	for did, d := range r.discussions {
		if d.ProjectID != id {
			continue
		}
		for mid, m := range r.messages {
			if m.DiscussionID == did {
				delete(r.messages, mid)
			}
		}
		delete(r.discussions, did)
	}
	delete(r.projects, id)
	return nil
}

func (r *projectRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.projects), nil
}
