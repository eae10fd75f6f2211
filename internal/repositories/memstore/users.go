package memstore

import (
	"context"
	"strings"
	"time"

	"teamhub/internal/apperr"
	"teamhub/internal/models"
	"teamhub/internal/repositories"
)

type userRepo struct{ *db }

func cloneUser(u *models.User) models.User {
	c := *u
	c.LastActive = cloneTime(u.LastActive)
	c.RefreshExpiresAt = cloneTime(u.RefreshExpiresAt)
	if u.RefreshToken != nil {
		t := *u.RefreshToken
		c.RefreshToken = &t
	}
	return c
}

func (r *userRepo) Create(_ context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := models.ValidateUser(u); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repositories.ErrDuplicate
		}
	}
	u.ID = r.nextID()
	c := cloneUser(u)
	r.users[u.ID] = &c
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := cloneUser(u)
	return &c, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *userRepo) GetByIDs(_ context.Context, ids []int64) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.User{}
	for _, id := range ids {
		if u, ok := r.users[id]; ok && !containsUser(out, id) {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func containsUser(us []models.User, id int64) bool {
	for _, u := range us {
		if u.ID == id {
			return true
		}
	}
	return false
}

func (r *userRepo) List(_ context.Context, f models.UserFilter) ([]models.User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := []models.User{}
	for _, u := range r.users {
		if f.Search != "" && !contains(u.Name, f.Search) && !contains(u.Email, f.Search) && !contains(u.Department, f.Search) {
			continue
		}
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		if f.Status != nil && u.Status != *f.Status {
			continue
		}
		matched = append(matched, cloneUser(u))
	}
	newestFirst(matched, func(u models.User) time.Time { return u.CreatedAt }, func(u models.User) int64 { return u.ID })
	return paginate(matched, f.PageRequest), len(matched), nil
}

func (r *userRepo) Update(_ context.Context, u *models.User) error {
	if err := models.ValidateUser(u); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[u.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	cur.Name, cur.Role, cur.Status = u.Name, u.Role, u.Status
	cur.Department, cur.Location, cur.Phone, cur.Avatar = u.Department, u.Location, u.Phone, u.Avatar
	cur.TelegramChatID, cur.NotifyTelegram, cur.NotifyEmail = u.TelegramChatID, u.NotifyTelegram, u.NotifyEmail
	cur.UpdatedAt = u.UpdatedAt
	return nil
}

func (r *userRepo) UpdateStatus(_ context.Context, id int64, status models.UserStatus, at time.Time) error {
	if !models.IsValidUserStatus(status) {
		return apperr.Validation(apperr.FieldError{Field: "status", Message: "invalid status"})
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.Status = status
	u.LastActive = &at
	u.UpdatedAt = at
	return nil
}

func (r *userRepo) Delete(_ context.Context, id, reassignTo int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repositories.ErrNotFound
	}
	now := r.now()
	for _, p := range r.projects {
		members := p.Members[:0:0]
		for _, m := range p.Members {
			if m.UserID != id {
				members = append(members, m)
			}
		}
		p.Members = members
		if p.CreatedBy == id {
			p.CreatedBy = reassignTo
			p.UpdatedAt = now
		}
	}
	for _, t := range r.tasks {
		if t.IsAssignedTo(id) {
			t.AssignedTo = nil
		}
	}
	for nid, n := range r.notifications {
		if n.UserID == id {
			delete(r.notifications, nid)
		}
	}
	delete(r.users, id)
	return nil
}

func (r *userRepo) Count(_ context.Context, role *models.UserRole, status *models.UserStatus) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, u := range r.users {
		if role != nil && u.Role != *role {
			continue
		}
		if status != nil && u.Status != *status {
			continue
		}
		n++
	}
	return n, nil
}

func (r *userRepo) CountDepartments(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]struct{}{}
	for _, u := range r.users {
		if u.Department != "" {
			seen[u.Department] = struct{}{}
		}
	}
	return len(seen), nil
}

func (r *userRepo) UpdateRefresh(_ context.Context, userID int64, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	u.RefreshToken = &token
	u.RefreshExpiresAt = &expiresAt
	u.RefreshRevoked = false
	return nil
}

func (r *userRepo) GetByRefreshToken(_ context.Context, token string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.RefreshToken != nil && *u.RefreshToken == token {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *userRepo) ClearRefresh(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	u.RefreshToken = nil
	u.RefreshExpiresAt = nil
	u.RefreshRevoked = true
	return nil
}
