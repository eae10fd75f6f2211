package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"teamhub/internal/models"
)

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `
	id, type, title, message, user_id, is_read, read_at, priority, action_url,
	related_entity_type, related_entity_id, metadata, expires_at, created_at, updated_at`

func scanNotification(row rowScanner) (*models.Notification, error) {
	n := &models.Notification{}
	var (
		readAt     sql.NullTime
		entityType sql.NullString
		entityID   sql.NullInt64
		metadata   []byte
	)
	if err := row.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &n.UserID, &n.IsRead, &readAt, &n.Priority,
		&n.ActionURL, &entityType, &entityID, &metadata, &n.ExpiresAt, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.ReadAt = timePtr(readAt)
	if entityType.Valid && entityID.Valid {
		n.RelatedEntity = &models.RelatedEntity{Type: models.EntityType(entityType.String), ID: entityID.Int64}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of notification %d: %w", n.ID, err)
		}
	}
	return n, nil
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := models.ValidateNotification(n); err != nil {
		return err
	}
	meta := n.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	rawMeta, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	var (
		entityType sql.NullString
		entityID   sql.NullInt64
	)
	if n.RelatedEntity != nil {
		entityType = sql.NullString{String: string(n.RelatedEntity.Type), Valid: true}
		entityID = sql.NullInt64{Int64: n.RelatedEntity.ID, Valid: true}
	}
	const q = `
		INSERT INTO notifications (
			type, title, message, user_id, is_read, read_at, priority, action_url,
			related_entity_type, related_entity_id, metadata, expires_at, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING id`
	return r.db.QueryRowContext(ctx, q,
		n.Type, n.Title, n.Message, n.UserID, n.IsRead, n.ReadAt, n.Priority, n.ActionURL,
		entityType, entityID, rawMeta, n.ExpiresAt, n.CreatedAt, n.UpdatedAt,
	).Scan(&n.ID)
}

func (r *notificationRepository) GetByID(ctx context.Context, id int64, now time.Time) (*models.Notification, error) {
	n, err := scanNotification(r.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1 AND expires_at > $2`, id, now))
	return n, notFound(err)
}

func (r *notificationRepository) List(ctx context.Context, f models.NotificationFilter) ([]models.Notification, int, error) {
	var w where
	w.add("user_id = $%d", f.UserID)
	w.add("expires_at > $%d", f.Now)
	if f.Type != nil {
		w.add("type = $%d", *f.Type)
	}
	if f.IsRead != nil {
		w.add("is_read = $%d", *f.IsRead)
	}
	if f.Priority != nil {
		w.add("priority = $%d", *f.Priority)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + notificationColumns + ` FROM notifications` + w.String() + ` ORDER BY created_at DESC, id DESC`
	q += w.page(f.PageRequest)
	rows, err := r.db.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *n)
	}
	return out, total, rows.Err()
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID int64, now time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE AND expires_at > $2`,
		userID, now).Scan(&n)
	return n, err
}

func (r *notificationRepository) SetRead(ctx context.Context, id int64, read bool, at time.Time) error {
	var readAt *time.Time
	if read {
		readAt = &at
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read=$1, read_at=$2, updated_at=$3 WHERE id=$4`, read, readAt, at, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read=TRUE, read_at=$1, updated_at=$1
		 WHERE user_id=$2 AND is_read=FALSE AND expires_at > $1`, at, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *notificationRepository) DeleteAllForUser(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
