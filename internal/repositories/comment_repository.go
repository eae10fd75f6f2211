package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"teamhub/internal/models"
)

type commentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) CommentRepository {
	return &commentRepository{db: db}
}

const commentColumns = `id, content, author, task_id, parent_id, is_edited, edited_at, reactions, created_at, updated_at`

func reactionsJSON(rs []models.Reaction) ([]byte, error) {
	if rs == nil {
		rs = []models.Reaction{}
	}
	return json.Marshal(rs)
}

func decodeReactions(raw []byte) ([]models.Reaction, error) {
	out := []models.Reaction{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode reactions: %w", err)
	}
	return out, nil
}

func scanComment(row rowScanner) (*models.Comment, error) {
	c := &models.Comment{}
	var (
		parentID  sql.NullInt64
		editedAt  sql.NullTime
		reactions []byte
	)
	if err := row.Scan(&c.ID, &c.Content, &c.Author, &c.TaskID, &parentID, &c.IsEdited, &editedAt,
		&reactions, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ParentID = int64Ptr(parentID)
	c.EditedAt = timePtr(editedAt)
	rs, err := decodeReactions(reactions)
	if err != nil {
		return nil, err
	}
	c.Reactions = rs
	return c, nil
}

func (r *commentRepository) Create(ctx context.Context, c *models.Comment) error {
	if err := models.ValidateComment(c); err != nil {
		return err
	}
	reactions, err := reactionsJSON(c.Reactions)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO comments (content, author, task_id, parent_id, reactions, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id`
	return r.db.QueryRowContext(ctx, q,
		c.Content, c.Author, c.TaskID, nullInt64(c.ParentID), reactions, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
}

func (r *commentRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
	return c, notFound(err)
}

func (r *commentRepository) ListByTask(ctx context.Context, taskID int64) ([]models.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE task_id = $1 ORDER BY created_at ASC, id ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *commentRepository) UpdateReactions(ctx context.Context, id int64, reactions []models.Reaction, at time.Time) error {
	raw, err := reactionsJSON(reactions)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE comments SET reactions=$1, updated_at=$2 WHERE id=$3`, raw, at, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}
