package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"teamhub/internal/models"
)

type taskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) TaskRepository {
	return &taskRepository{db: db}
}

const taskColumns = `
	id, title, description, status, priority, project_id, assigned_to, created_by,
	due_date, tags, estimated_hours, actual_hours, subtasks, dependencies, watchers,
	created_at, updated_at`

func scanTask(row rowScanner) (*models.Task, error) {
	t := &models.Task{}
	var (
		assignedTo   sql.NullInt64
		dueDate      sql.NullTime
		estimated    sql.NullFloat64
		tags         pq.StringArray
		subtasks     []byte
		dependencies pq.Int64Array
		watchers     pq.Int64Array
	)
	if err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.ProjectID, &assignedTo, &t.CreatedBy,
		&dueDate, &tags, &estimated, &t.ActualHours, &subtasks, &dependencies, &watchers,
		&t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.AssignedTo = int64Ptr(assignedTo)
	t.DueDate = timePtr(dueDate)
	if estimated.Valid {
		v := estimated.Float64
		t.EstimatedHours = &v
	}
	t.Tags = nonNilStrings(tags)
	t.Dependencies = nonNilInt64s(dependencies)
	t.Watchers = nonNilInt64s(watchers)
	t.Subtasks = []models.Subtask{}
	if len(subtasks) > 0 {
		if err := json.Unmarshal(subtasks, &t.Subtasks); err != nil {
			return nil, fmt.Errorf("decode subtasks of task %d: %w", t.ID, err)
		}
	}
	return t, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInt64s(s []int64) []int64 {
	if s == nil {
		return []int64{}
	}
	return s
}

func subtasksJSON(s []models.Subtask) ([]byte, error) {
	if s == nil {
		s = []models.Subtask{}
	}
	return json.Marshal(s)
}

func (r *taskRepository) Create(ctx context.Context, t *models.Task) error {
	if err := models.ValidateTask(t); err != nil {
		return err
	}
	subtasks, err := subtasksJSON(t.Subtasks)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO tasks (
			title, description, status, priority, project_id, assigned_to, created_by,
			due_date, tags, estimated_hours, actual_hours, subtasks, dependencies, watchers,
			created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING id`
	return r.db.QueryRowContext(ctx, q,
		t.Title, t.Description, t.Status, t.Priority, t.ProjectID, nullInt64(t.AssignedTo), t.CreatedBy,
		t.DueDate, pq.Array(t.Tags), t.EstimatedHours, t.ActualHours, subtasks,
		pq.Array(t.Dependencies), pq.Array(t.Watchers), t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	return t, notFound(err)
}

func (r *taskRepository) List(ctx context.Context, f models.TaskFilter) ([]models.Task, int, error) {
	if len(f.ProjectIDs) == 0 {
		return []models.Task{}, 0, nil
	}
	var w where
	w.add("project_id = ANY($%d)", pq.Array(f.ProjectIDs))
	if f.AssignedTo != nil {
		w.add("assigned_to = $%d", *f.AssignedTo)
	}
	if f.Status != nil {
		w.add("status = $%d", *f.Status)
	}
	if f.Priority != nil {
		w.add("priority = $%d", *f.Priority)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + taskColumns + ` FROM tasks` + w.String() + ` ORDER BY created_at DESC, id DESC`
	q += w.page(f.PageRequest)
	rows, err := r.db.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	tasks, err := collectTasks(rows)
	return tasks, total, err
}

func collectTasks(rows *sql.Rows) ([]models.Task, error) {
	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) ListByProject(ctx context.Context, projectID int64) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = $1 ORDER BY created_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *taskRepository) Update(ctx context.Context, t *models.Task) error {
	if err := models.ValidateTask(t); err != nil {
		return err
	}
	subtasks, err := subtasksJSON(t.Subtasks)
	if err != nil {
		return err
	}
	const q = `
		UPDATE tasks SET
			title=$1, description=$2, status=$3, priority=$4, assigned_to=$5, due_date=$6,
			tags=$7, estimated_hours=$8, actual_hours=$9, subtasks=$10, dependencies=$11,
			watchers=$12, updated_at=$13
		WHERE id=$14`
	res, err := r.db.ExecContext(ctx, q,
		t.Title, t.Description, t.Status, t.Priority, nullInt64(t.AssignedTo), t.DueDate,
		pq.Array(t.Tags), t.EstimatedHours, t.ActualHours, subtasks, pq.Array(t.Dependencies),
		pq.Array(t.Watchers), t.UpdatedAt, t.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE task_id = $1`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return expectOne(res)
	})
}
