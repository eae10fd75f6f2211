package services

import (
	"context"
	"errors"
	"time"

	"teamhub/internal/models"
	"teamhub/internal/repositories"
)

// refs resolves foreign keys into the embedded projections returned by the api.
type refs struct {
	users    repositories.UserRepository
	projects repositories.ProjectRepository
}

type userRefs map[int64]models.UserRef

// get falls back to a bare id for accounts that no longer exist.
func (m userRefs) get(id int64) models.UserRef {
	if r, ok := m[id]; ok {
		return r
	}
	return models.UserRef{ID: id}
}

func (m userRefs) list(ids []int64) []models.UserRef {
	out := make([]models.UserRef, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.get(id))
	}
	return out
}

func (r refs) loadUsers(ctx context.Context, ids []int64) (userRefs, error) {
	out := userRefs{}
	if len(ids) == 0 {
		return out, nil
	}
	users, err := r.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range users {
		out[users[i].ID] = users[i].Ref()
	}
	return out, nil
}

func (r refs) loadProjects(ctx context.Context, ids []int64) (map[int64]models.ProjectRef, error) {
	out := map[int64]models.ProjectRef{}
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		p, err := r.projects.GetByID(ctx, id)
		if errors.Is(err, repositories.ErrNotFound) {
			out[id] = models.ProjectRef{ID: id}
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = p.Ref()
	}
	return out, nil
}

func projectUserIDs(p *models.Project) []int64 {
	ids := []int64{p.CreatedBy}
	for _, m := range p.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

func buildProjectView(p *models.Project, us userRefs) models.ProjectView {
	members := make([]models.MemberView, 0, len(p.Members))
	for _, m := range p.Members {
		members = append(members, models.MemberView{User: us.get(m.UserID), Role: m.Role, JoinedAt: m.JoinedAt})
	}
	return models.ProjectView{
		Project:     *p,
		CreatedBy:   us.get(p.CreatedBy),
		Members:     members,
		MemberCount: p.MemberCount(),
	}
}

func (r refs) projectViews(ctx context.Context, ps []models.Project) ([]models.ProjectView, error) {
	var ids []int64
	for i := range ps {
		ids = append(ids, projectUserIDs(&ps[i])...)
	}
	us, err := r.loadUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.ProjectView, 0, len(ps))
	for i := range ps {
		out = append(out, buildProjectView(&ps[i], us))
	}
	return out, nil
}

func (r refs) projectView(ctx context.Context, p *models.Project) (*models.ProjectView, error) {
	views, err := r.projectViews(ctx, []models.Project{*p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (r refs) taskViews(ctx context.Context, ts []models.Task, now time.Time) ([]models.TaskView, error) {
	var uids, pids []int64
	for _, t := range ts {
		uids = append(uids, t.CreatedBy)
		if t.AssignedTo != nil {
			uids = append(uids, *t.AssignedTo)
		}
		pids = append(pids, t.ProjectID)
	}
	us, err := r.loadUsers(ctx, uids)
	if err != nil {
		return nil, err
	}
	ps, err := r.loadProjects(ctx, pids)
	if err != nil {
		return nil, err
	}
	out := make([]models.TaskView, 0, len(ts))
	for i := range ts {
		t := &ts[i]
		v := models.TaskView{
			Task:                 *t,
			Project:              ps[t.ProjectID],
			CreatedBy:            us.get(t.CreatedBy),
			CompletionPercentage: t.CompletionPercentage(),
			IsOverdue:            t.IsOverdue(now),
		}
		if t.AssignedTo != nil {
			ref := us.get(*t.AssignedTo)
			v.AssignedTo = &ref
		}
		out = append(out, v)
	}
	return out, nil
}

func (r refs) taskView(ctx context.Context, t *models.Task, now time.Time) (*models.TaskView, error) {
	views, err := r.taskViews(ctx, []models.Task{*t}, now)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (r refs) commentViews(ctx context.Context, cs []models.Comment) ([]models.CommentView, error) {
	var ids []int64
	for _, c := range cs {
		ids = append(ids, c.Author)
	}
	us, err := r.loadUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.CommentView, 0, len(cs))
	for _, c := range cs {
		out = append(out, models.CommentView{Comment: c, Author: us.get(c.Author)})
	}
	return out, nil
}

func (r refs) discussionViews(ctx context.Context, ds []models.Discussion) ([]models.DiscussionView, error) {
	var uids, pids []int64
	for _, d := range ds {
		uids = append(uids, d.CreatedBy)
		uids = append(uids, d.Participants...)
		pids = append(pids, d.ProjectID)
	}
	us, err := r.loadUsers(ctx, uids)
	if err != nil {
		return nil, err
	}
	ps, err := r.loadProjects(ctx, pids)
	if err != nil {
		return nil, err
	}
	out := make([]models.DiscussionView, 0, len(ds))
	for _, d := range ds {
		out = append(out, models.DiscussionView{
			Discussion:   d,
			Project:      ps[d.ProjectID],
			CreatedBy:    us.get(d.CreatedBy),
			Participants: us.list(d.Participants),
		})
	}
	return out, nil
}

func (r refs) discussionView(ctx context.Context, d *models.Discussion) (*models.DiscussionView, error) {
	views, err := r.discussionViews(ctx, []models.Discussion{*d})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (r refs) messageViews(ctx context.Context, ms []models.Message) ([]models.MessageView, error) {
	var ids []int64
	for _, m := range ms {
		ids = append(ids, m.Author)
		ids = append(ids, m.Mentions...)
	}
	us, err := r.loadUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.MessageView, 0, len(ms))
	for _, m := range ms {
		out = append(out, models.MessageView{Message: m, Author: us.get(m.Author), Mentions: us.list(m.Mentions)})
	}
	return out, nil
}
