package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"teamhub/internal/models"
)

type discussionRepository struct {
	DB *sql.DB
}

func NewDiscussionRepository(db *sql.DB) DiscussionRepository {
	return &discussionRepository{DB: db}
}

const discussionColumns = `
	id, title, project_id, created_by, is_pinned, is_locked, tags, participants,
	last_message_at, message_count, created_at, updated_at`

func scanDiscussion(row rowScanner) (*models.Discussion, error) {
	d := &models.Discussion{}
	var (
		tags         pq.StringArray
		participants pq.Int64Array
	)
	if err := row.Scan(&d.ID, &d.Title, &d.ProjectID, &d.CreatedBy, &d.IsPinned, &d.IsLocked,
		&tags, &participants, &d.LastMessageAt, &d.MessageCount, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Tags = nonNilStrings(tags)
	d.Participants = nonNilInt64s(participants)
	return d, nil
}

func (r *discussionRepository) Create(ctx context.Context, d *models.Discussion) error {
	if err := models.ValidateDiscussion(d); err != nil {
		return err
	}
	const q = `
		INSERT INTO discussions (
			title, project_id, created_by, is_pinned, is_locked, tags, participants,
			last_message_at, message_count, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id`
	return r.DB.QueryRowContext(ctx, q,
		d.Title, d.ProjectID, d.CreatedBy, d.IsPinned, d.IsLocked, pq.Array(d.Tags), pq.Array(d.Participants),
		d.LastMessageAt, d.MessageCount, d.CreatedAt, d.UpdatedAt,
	).Scan(&d.ID)
}

func (r *discussionRepository) GetByID(ctx context.Context, id int64) (*models.Discussion, error) {
	d, err := scanDiscussion(r.DB.QueryRowContext(ctx, `SELECT `+discussionColumns+` FROM discussions WHERE id = $1`, id))
	return d, notFound(err)
}

func (r *discussionRepository) List(ctx context.Context, f models.DiscussionFilter) ([]models.Discussion, int, error) {
	if len(f.ProjectIDs) == 0 {
		return []models.Discussion{}, 0, nil
	}
	var w where
	w.add("project_id = ANY($%d)", pq.Array(f.ProjectIDs))
	if f.Search != "" {
		w.add("title ILIKE $%d", likePattern(f.Search))
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM discussions`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + discussionColumns + ` FROM discussions` + w.String() +
		` ORDER BY is_pinned DESC, last_message_at DESC, id DESC`
	q += w.page(f.PageRequest)
	rows, err := r.DB.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []models.Discussion{}
	for rows.Next() {
		d, err := scanDiscussion(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

// AddParticipant appends userID unless already present, in a single statement.
func (r *discussionRepository) AddParticipant(ctx context.Context, id, userID int64) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE discussions
		SET participants = CASE WHEN $2 = ANY(participants) THEN participants ELSE array_append(participants, $2) END
		WHERE id = $1`, id, userID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *discussionRepository) SetPinned(ctx context.Context, id int64, pinned bool, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE discussions SET is_pinned=$1, updated_at=$2 WHERE id=$3`, pinned, at, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *discussionRepository) SetLocked(ctx context.Context, id int64, locked bool, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE discussions SET is_locked=$1, updated_at=$2 WHERE id=$3`, locked, at, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}
