package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"teamhub/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]models.User, error)
	// List returns one page and the total match count. A zero Limit returns every match.
	List(ctx context.Context, f models.UserFilter) ([]models.User, int, error)
	Update(ctx context.Context, u *models.User) error
	UpdateStatus(ctx context.Context, id int64, status models.UserStatus, at time.Time) error
	// Delete pulls the user from every roster, hands their projects to reassignTo and
	// removes the account, atomically.
	Delete(ctx context.Context, id, reassignTo int64) error

	Count(ctx context.Context, role *models.UserRole, status *models.UserStatus) (int, error)
	CountDepartments(ctx context.Context) (int, error)

	// refresh helpers
	UpdateRefresh(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	GetByRefreshToken(ctx context.Context, token string) (*models.User, error)
	ClearRefresh(ctx context.Context, userID int64) error
}

type ProjectRepository interface {
	// Create stores the project together with its initial roster.
	Create(ctx context.Context, p *models.Project) error
	GetByID(ctx context.Context, id int64) (*models.Project, error)
	List(ctx context.Context, f models.ProjectFilter) ([]models.Project, int, error)
	// VisibleIDs lists the projects userID created or is a member of.
	VisibleIDs(ctx context.Context, userID int64) ([]int64, error)
	Update(ctx context.Context, p *models.Project) error
	// AddMember fails with ErrDuplicate when the user is already on the roster.
	AddMember(ctx context.Context, projectID int64, m models.ProjectMember) error
	// UpdateMemberRole and RemoveMember fail with ErrNotFound for non-members.
	UpdateMemberRole(ctx context.Context, projectID, userID int64, role models.MemberRole) error
	RemoveMember(ctx context.Context, projectID, userID int64) error
	// Delete removes the project and everything it owns in one step.
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

type TaskRepository interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id int64) (*models.Task, error)
	List(ctx context.Context, f models.TaskFilter) ([]models.Task, int, error)
	ListByProject(ctx context.Context, projectID int64) ([]models.Task, error)
	Update(ctx context.Context, t *models.Task) error
	// Delete removes the task and its comments.
	Delete(ctx context.Context, id int64) error
}

type CommentRepository interface {
	Create(ctx context.Context, c *models.Comment) error
	GetByID(ctx context.Context, id int64) (*models.Comment, error)
	ListByTask(ctx context.Context, taskID int64) ([]models.Comment, error)
	UpdateReactions(ctx context.Context, id int64, reactions []models.Reaction, at time.Time) error
}

type DiscussionRepository interface {
	Create(ctx context.Context, d *models.Discussion) error
	GetByID(ctx context.Context, id int64) (*models.Discussion, error)
	// List orders pinned discussions first, then by most recent activity.
	List(ctx context.Context, f models.DiscussionFilter) ([]models.Discussion, int, error)
	AddParticipant(ctx context.Context, id, userID int64) error
	SetPinned(ctx context.Context, id int64, pinned bool, at time.Time) error
	SetLocked(ctx context.Context, id int64, locked bool, at time.Time) error
}

type MessageRepository interface {
	// Post stores the message, bumps the discussion's activity and message count and
	// adds the author as a participant.
	Post(ctx context.Context, m *models.Message) error
	GetByID(ctx context.Context, id int64) (*models.Message, error)
	ListByDiscussion(ctx context.Context, discussionID int64) ([]models.Message, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	// GetByID hides notifications that have expired at now.
	GetByID(ctx context.Context, id int64, now time.Time) (*models.Notification, error)
	List(ctx context.Context, f models.NotificationFilter) ([]models.Notification, int, error)
	CountUnread(ctx context.Context, userID int64, now time.Time) (int, error)
	SetRead(ctx context.Context, id int64, read bool, at time.Time) error
	// MarkAllRead skips notifications that have expired at at.
	MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error)
	Delete(ctx context.Context, id int64) error
	DeleteAllForUser(ctx context.Context, userID int64) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Store bundles every repository behind one injectable value.
type Store struct {
	Users         UserRepository
	Projects      ProjectRepository
	Tasks         TaskRepository
	Comments      CommentRepository
	Discussions   DiscussionRepository
	Messages      MessageRepository
	Notifications NotificationRepository
}

func NewPostgresStore(db *sql.DB) *Store {
	return &Store{
		Users:         NewUserRepository(db),
		Projects:      NewProjectRepository(db),
		Tasks:         NewTaskRepository(db),
		Comments:      NewCommentRepository(db),
		Discussions:   NewDiscussionRepository(db),
		Messages:      NewMessageRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

// where accumulates positional conditions the same way for every list query.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(format string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(format, len(w.args)))
}

func (w *where) addRaw(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page appends LIMIT/OFFSET placeholders; a zero limit means no window.
func (w *where) page(p models.PageRequest) string {
	if p.Limit <= 0 {
		return ""
	}
	w.args = append(w.args, p.Limit, p.Offset())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(w.args)-1, len(w.args))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(s)) + "%"
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// withTx runs fn inside a transaction and rolls back on any error.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
