package repositories

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamhub/internal/apperr"
	"teamhub/internal/models"
)

var t0 = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func setupMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestAddMemberDetectsDuplicate(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()
	m := models.ProjectMember{UserID: 2, Role: models.MemberRoleMember, JoinedAt: t0}

	insert := regexp.QuoteMeta(`INSERT INTO project_members (project_id, user_id, role, joined_at)`)
	mock.ExpectExec(insert).WithArgs(int64(1), int64(2), models.MemberRoleMember, t0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).WithArgs(int64(1), int64(2), models.MemberRoleMember, t0).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.AddMember(ctx, 1, m))
	assert.ErrorIs(t, repo.AddMember(ctx, 1, m), ErrDuplicate)

	err := repo.AddMember(ctx, 1, models.ProjectMember{UserID: 3, Role: "owner"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestRemoveMemberReportsMissing(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewProjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM project_members WHERE project_id=$1 AND user_id=$2 RETURNING user_id`)).
		WithArgs(int64(1), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	assert.ErrorIs(t, repo.RemoveMember(context.Background(), 1, 9), ErrNotFound)
}

func TestProjectDeleteCascadesInOrder(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewProjectRepository(db)

	mock.ExpectBegin()
	for _, q := range []string{
		`DELETE FROM comments WHERE task_id IN`,
		`DELETE FROM tasks WHERE project_id = $1`,
		`DELETE FROM messages WHERE discussion_id IN`,
		`DELETE FROM discussions WHERE project_id = $1`,
		`DELETE FROM project_members WHERE project_id = $1`,
	} {
		mock.ExpectExec(regexp.QuoteMeta(q)).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 2))
	}
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM projects WHERE id = $1`)).WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 4))
}

func TestProjectDeleteRollsBack(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewProjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM comments WHERE task_id IN`)).WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tasks WHERE project_id = $1`)).WithArgs(int64(4)).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	assert.EqualError(t, repo.Delete(context.Background(), 4), "deadlock detected")
}

func TestProjectGetByID(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	cols := []string{"id", "name", "codename", "description", "status", "progress", "start_date", "end_date",
		"color", "tags", "is_public", "allow_member_invites", "created_by", "created_at", "updated_at"}
	mock.ExpectQuery(`FROM projects p WHERE p.id = \$1`).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			int64(1), "Launch", "Agile Falcon", "First release", "active", 10, t0, nil,
			"#6366f1", "{q1,beta}", false, true, int64(5), t0, t0))
	mock.ExpectQuery(`FROM project_members\s+WHERE project_id = ANY\(\$1\)`).
		WithArgs(pq.Array([]int64{1})).
		WillReturnRows(sqlmock.NewRows([]string{"project_id", "user_id", "role", "joined_at"}).
			AddRow(int64(1), int64(5), "admin", t0).
			AddRow(int64(1), int64(6), "viewer", t0.Add(time.Hour)))

	p, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Launch", p.Name)
	assert.Nil(t, p.EndDate)
	assert.Equal(t, []string{"q1", "beta"}, p.Tags)
	require.Len(t, p.Members, 2)
	assert.Equal(t, models.MemberRoleViewer, p.Members[1].Role)

	mock.ExpectQuery(`FROM projects p WHERE p.id = \$1`).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(cols))
	_, err = repo.GetByID(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserCreateMapsUniqueViolation(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewUserRepository(db)
	u := &models.User{Name: "Ann Lee", Email: " Ann@Example.com ", Role: models.UserRoleMember, Status: models.UserStatusActive}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("Ann Lee", "ann@example.com", sqlmock.AnyArg(), models.UserRoleMember, models.UserStatusActive,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	assert.ErrorIs(t, repo.Create(context.Background(), u), ErrDuplicate)
	assert.Equal(t, "ann@example.com", u.Email)
}

func TestUserDeleteReassignsInOneTx(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM project_members WHERE user_id = $1`)).WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE projects SET created_by = $1`)).WithArgs(int64(1), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id = $1`)).WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.Delete(context.Background(), 7, 1), ErrNotFound)
}

func TestNotificationListHidesExpired(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewNotificationRepository(db)
	unread := false
	f := models.NotificationFilter{UserID: 3, Now: t0, IsRead: &unread, PageRequest: models.NewPageRequest(2, 5, 20)}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND expires_at > $2 AND is_read = $3`)).
		WithArgs(int64(3), t0, false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC, id DESC LIMIT $4 OFFSET $5`)).
		WithArgs(int64(3), t0, false, 5, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "title", "message", "user_id", "is_read", "read_at",
			"priority", "action_url", "related_entity_type", "related_entity_id", "metadata", "expires_at",
			"created_at", "updated_at"}).
			AddRow(int64(11), "task_assigned", "New Task Assigned", "Ann assigned you", int64(3), false, nil,
				"high", "/tasks/4", "task", int64(4), []byte(`{"projectId":"2"}`), t0.Add(time.Hour), t0, t0))

	items, total, err := repo.List(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, items, 1)
	n := items[0]
	assert.Equal(t, models.NotifTaskAssigned, n.Type)
	require.NotNil(t, n.RelatedEntity)
	assert.EqualValues(t, 4, n.RelatedEntity.ID)
	assert.Equal(t, "2", n.Metadata["projectId"])
}

func TestNotificationReaperQuery(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM notifications WHERE expires_at <= $1`)).WithArgs(t0).
		WillReturnResult(sqlmock.NewResult(0, 12))

	n, err := repo.DeleteExpired(context.Background(), t0)
	require.NoError(t, err)
	assert.EqualValues(t, 12, n)
}

func TestMarkAllReadSkipsExpired(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewNotificationRepository(db)

	mock.ExpectExec(`UPDATE notifications SET is_read=TRUE, read_at=\$1, updated_at=\$1\s+WHERE user_id=\$2 AND is_read=FALSE AND expires_at > \$1`).
		WithArgs(t0, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.MarkAllRead(context.Background(), 5, t0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestLikePatternEscapes(t *testing.T) {
	assert.Equal(t, `%50\% off%`, likePattern(" 50% off "))
	assert.Equal(t, `%a\_b%`, likePattern("a_b"))
}
