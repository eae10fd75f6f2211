package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"teamhub/internal/apperr"
	"teamhub/internal/models"
)

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

const userColumns = `
	id, name, email, password_hash, role, status,
	department, location, phone, avatar, last_active,
	telegram_chat_id, notify_telegram, notify_email,
	refresh_token, refresh_expires_at, refresh_revoked,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var (
		lastActive sql.NullTime
		rt         sql.NullString
		rte        sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Status,
		&u.Department, &u.Location, &u.Phone, &u.Avatar, &lastActive,
		&u.TelegramChatID, &u.NotifyTelegram, &u.NotifyEmail,
		&rt, &rte, &u.RefreshRevoked,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.LastActive = timePtr(lastActive)
	if rt.Valid {
		s := rt.String
		u.RefreshToken = &s
	}
	u.RefreshExpiresAt = timePtr(rte)
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *userRepository) Create(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := models.ValidateUser(u); err != nil {
		return err
	}
	const q = `
		INSERT INTO users (
			name, email, password_hash, role, status,
			department, location, phone, avatar,
			telegram_chat_id, notify_telegram, notify_email,
			created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING id`
	err := r.DB.QueryRowContext(ctx, q,
		u.Name, u.Email, u.PasswordHash, u.Role, u.Status,
		u.Department, u.Location, u.Phone, u.Avatar,
		u.TelegramChatID, u.NotifyTelegram, u.NotifyEmail,
		u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, notFound(err)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email))))
	return u, notFound(err)
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func collectUsers(rows *sql.Rows) ([]models.User, error) {
	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *userRepository) List(ctx context.Context, f models.UserFilter) ([]models.User, int, error) {
	var w where
	if f.Search != "" {
		w.add(`(name ILIKE $%[1]d OR email ILIKE $%[1]d OR department ILIKE $%[1]d)`, likePattern(f.Search))
	}
	if f.Role != nil {
		w.add("role = $%d", *f.Role)
	}
	if f.Status != nil {
		w.add("status = $%d", *f.Status)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + userColumns + ` FROM users` + w.String() + ` ORDER BY created_at DESC, id DESC`
	q += w.page(f.PageRequest)
	rows, err := r.DB.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	users, err := collectUsers(rows)
	return users, total, err
}

func (r *userRepository) Update(ctx context.Context, u *models.User) error {
	if err := models.ValidateUser(u); err != nil {
		return err
	}
	const q = `
		UPDATE users SET
			name=$1, role=$2, status=$3, department=$4, location=$5, phone=$6, avatar=$7,
			telegram_chat_id=$8, notify_telegram=$9, notify_email=$10, updated_at=$11
		WHERE id=$12`
	res, err := r.DB.ExecContext(ctx, q,
		u.Name, u.Role, u.Status, u.Department, u.Location, u.Phone, u.Avatar,
		u.TelegramChatID, u.NotifyTelegram, u.NotifyEmail, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *userRepository) UpdateStatus(ctx context.Context, id int64, status models.UserStatus, at time.Time) error {
	if !models.IsValidUserStatus(status) {
		return apperr.Validation(apperr.FieldError{Field: "status", Message: "invalid status"})
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET status=$1, last_active=$2, updated_at=$2 WHERE id=$3`, status, at, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *userRepository) Delete(ctx context.Context, id, reassignTo int64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM project_members WHERE user_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE projects SET created_by = $1, updated_at = NOW() WHERE created_by = $2`, reassignTo, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return expectOne(res)
	})
}

func (r *userRepository) Count(ctx context.Context, role *models.UserRole, status *models.UserStatus) (int, error) {
	var w where
	if role != nil {
		w.add("role = $%d", *role)
	}
	if status != nil {
		w.add("status = $%d", *status)
	}
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+w.String(), w.args...).Scan(&n)
	return n, err
}

func (r *userRepository) CountDepartments(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT department) FROM users WHERE department <> ''`).Scan(&n)
	return n, err
}

func (r *userRepository) UpdateRefresh(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET refresh_token=$1, refresh_expires_at=$2, refresh_revoked=FALSE
		WHERE id=$3`, token, expiresAt, userID)
	return err
}

func (r *userRepository) GetByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE refresh_token = $1`, token))
	return u, notFound(err)
}

func (r *userRepository) ClearRefresh(ctx context.Context, userID int64) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET refresh_token=NULL, refresh_expires_at=NULL, refresh_revoked=TRUE
		WHERE id=$1`, userID)
	return err
}
