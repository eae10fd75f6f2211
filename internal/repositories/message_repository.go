package repositories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"teamhub/internal/models"
)

type messageRepository struct {
	DB *sql.DB
}

func NewMessageRepository(db *sql.DB) MessageRepository {
	return &messageRepository{DB: db}
}

const messageColumns = `
	id, content, author, discussion_id, parent_id, is_edited, edited_at,
	reactions, mentions, created_at, updated_at`

func scanMessage(row rowScanner) (*models.Message, error) {
	m := &models.Message{}
	var (
		parentID  sql.NullInt64
		editedAt  sql.NullTime
		reactions []byte
		mentions  pq.Int64Array
	)
	if err := row.Scan(&m.ID, &m.Content, &m.Author, &m.DiscussionID, &parentID, &m.IsEdited, &editedAt,
		&reactions, &mentions, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.ParentID = int64Ptr(parentID)
	m.EditedAt = timePtr(editedAt)
	m.Mentions = nonNilInt64s(mentions)
	rs, err := decodeReactions(reactions)
	if err != nil {
		return nil, err
	}
	m.Reactions = rs
	return m, nil
}

func (r *messageRepository) Post(ctx context.Context, m *models.Message) error {
	if err := models.ValidateMessage(m); err != nil {
		return err
	}
	reactions, err := reactionsJSON(m.Reactions)
	if err != nil {
		return err
	}
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		const ins = `
			INSERT INTO messages (content, author, discussion_id, parent_id, reactions, mentions, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			RETURNING id`
		if err := tx.QueryRowContext(ctx, ins,
			m.Content, m.Author, m.DiscussionID, nullInt64(m.ParentID), reactions, pq.Array(m.Mentions),
			m.CreatedAt, m.UpdatedAt,
		).Scan(&m.ID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE discussions SET
				last_message_at = $2,
				message_count = message_count + 1,
				participants = CASE WHEN $3 = ANY(participants) THEN participants ELSE array_append(participants, $3) END,
				updated_at = $2
			WHERE id = $1`, m.DiscussionID, m.CreatedAt, m.Author)
		if err != nil {
			return err
		}
		return expectOne(res)
	})
}

func (r *messageRepository) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	m, err := scanMessage(r.DB.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	return m, notFound(err)
}

func (r *messageRepository) ListByDiscussion(ctx context.Context, discussionID int64) ([]models.Message, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE discussion_id = $1 ORDER BY created_at ASC, id ASC`, discussionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
