package repositories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"teamhub/internal/models"
)

type projectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) ProjectRepository {
	return &projectRepository{db: db}
}

const projectColumns = `
	p.id, p.name, p.codename, p.description, p.status, p.progress,
	p.start_date, p.end_date, p.color, p.tags, p.is_public, p.allow_member_invites,
	p.created_by, p.created_at, p.updated_at`

func scanProject(row rowScanner) (*models.Project, error) {
	p := &models.Project{}
	var (
		endDate sql.NullTime
		tags    pq.StringArray
	)
	if err := row.Scan(
		&p.ID, &p.Name, &p.Codename, &p.Description, &p.Status, &p.Progress,
		&p.StartDate, &endDate, &p.Color, &tags, &p.Settings.IsPublic, &p.Settings.AllowMemberInvites,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.EndDate = timePtr(endDate)
	p.Tags = []string(tags)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.Members = []models.ProjectMember{}
	return p, nil
}

func (r *projectRepository) Create(ctx context.Context, p *models.Project) error {
	if err := models.ValidateProject(p); err != nil {
		return err
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		const q = `
			INSERT INTO projects (
				name, codename, description, status, progress, start_date, end_date,
				color, tags, is_public, allow_member_invites, created_by, created_at, updated_at
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			RETURNING id`
		if err := tx.QueryRowContext(ctx, q,
			p.Name, p.Codename, p.Description, p.Status, p.Progress, p.StartDate, p.EndDate,
			p.Color, pq.Array(p.Tags), p.Settings.IsPublic, p.Settings.AllowMemberInvites,
			p.CreatedBy, p.CreatedAt, p.UpdatedAt,
		).Scan(&p.ID); err != nil {
			return err
		}
		for _, m := range p.Members {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO project_members (project_id, user_id, role, joined_at) VALUES ($1,$2,$3,$4)`,
				p.ID, m.UserID, m.Role, m.JoinedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *projectRepository) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	members, err := r.members(ctx, []int64{p.ID})
	if err != nil {
		return nil, err
	}
	p.Members = append(p.Members, members[p.ID]...)
	return p, nil
}

// members loads the rosters of several projects in join order.
func (r *projectRepository) members(ctx context.Context, projectIDs []int64) (map[int64][]models.ProjectMember, error) {
	out := make(map[int64][]models.ProjectMember, len(projectIDs))
	if len(projectIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT project_id, user_id, role, joined_at
		FROM project_members
		WHERE project_id = ANY($1)
		ORDER BY project_id, joined_at, user_id`, pq.Array(projectIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			pid int64
			m   models.ProjectMember
		)
		if err := rows.Scan(&pid, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		out[pid] = append(out[pid], m)
	}
	return out, rows.Err()
}

const visibleToCond = `(p.created_by = $%[1]d OR EXISTS (
	SELECT 1 FROM project_members pm WHERE pm.project_id = p.id AND pm.user_id = $%[1]d))`

func (r *projectRepository) List(ctx context.Context, f models.ProjectFilter) ([]models.Project, int, error) {
	var w where
	if f.VisibleTo != 0 {
		w.add(visibleToCond, f.VisibleTo)
	}
	if f.Status != nil {
		w.add("p.status = $%d", *f.Status)
	}
	if f.Search != "" {
		w.add(`(p.name ILIKE $%[1]d OR p.description ILIKE $%[1]d OR p.codename ILIKE $%[1]d)`, likePattern(f.Search))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects p`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + projectColumns + ` FROM projects p` + w.String() + ` ORDER BY p.created_at DESC, p.id DESC`
	q += w.page(f.PageRequest)
	rows, err := r.db.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	projects := []models.Project{}
	ids := []int64{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, *p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	members, err := r.members(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range projects {
		projects[i].Members = append(projects[i].Members, members[projects[i].ID]...)
	}
	return projects, total, nil
}

func (r *projectRepository) VisibleIDs(ctx context.Context, userID int64) ([]int64, error) {
	var w where
	w.add(visibleToCond, userID)
	rows, err := r.db.QueryContext(ctx, `SELECT p.id FROM projects p`+w.String()+` ORDER BY p.id`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *projectRepository) Update(ctx context.Context, p *models.Project) error {
	if err := models.ValidateProject(p); err != nil {
		return err
	}
	const q = `
		UPDATE projects SET
			name=$1, description=$2, status=$3, progress=$4, start_date=$5, end_date=$6,
			color=$7, tags=$8, is_public=$9, allow_member_invites=$10, updated_at=$11
		WHERE id=$12`
	res, err := r.db.ExecContext(ctx, q,
		p.Name, p.Description, p.Status, p.Progress, p.StartDate, p.EndDate,
		p.Color, pq.Array(p.Tags), p.Settings.IsPublic, p.Settings.AllowMemberInvites, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *projectRepository) AddMember(ctx context.Context, projectID int64, m models.ProjectMember) error {
	if err := models.ValidateMember(&m); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO project_members (project_id, user_id, role, joined_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (project_id, user_id) DO NOTHING`,
		projectID, m.UserID, m.Role, m.JoinedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *projectRepository) UpdateMemberRole(ctx context.Context, projectID, userID int64, role models.MemberRole) error {
	if err := models.ValidateMember(&models.ProjectMember{UserID: userID, Role: role}); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE project_members SET role=$1 WHERE project_id=$2 AND user_id=$3`, role, projectID, userID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *projectRepository) RemoveMember(ctx context.Context, projectID, userID int64) error {
	var removed int64
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM project_members WHERE project_id=$1 AND user_id=$2 RETURNING user_id`,
		projectID, userID).Scan(&removed)
	return notFound(err)
}

// Delete cascades in dependency order: comments, tasks, messages, discussions, roster, project.
func (r *projectRepository) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		steps := []string{
			`DELETE FROM comments WHERE task_id IN (SELECT id FROM tasks WHERE project_id = $1)`,
			`DELETE FROM tasks WHERE project_id = $1`,
			`DELETE FROM messages WHERE discussion_id IN (SELECT id FROM discussions WHERE project_id = $1)`,
			`DELETE FROM discussions WHERE project_id = $1`,
			`DELETE FROM project_members WHERE project_id = $1`,
		}
		for _, q := range steps {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return expectOne(res)
	})
}

func (r *projectRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&n)
	return n, err
}
