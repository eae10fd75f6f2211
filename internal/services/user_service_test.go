package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamhub/internal/apperr"
	"teamhub/internal/models"
)

func TestUserListIsAdminOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := f.user(t, "Root Admin", models.UserRoleAdmin)
	ann := f.user(t, "Ann Lee", models.UserRoleMember)

	_, _, err := f.users.List(ctx, ann, UserQuery{PageRequest: models.NewPageRequest(1, 10, 10)})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	users, page, err := f.users.List(ctx, root, UserQuery{Search: "ann", PageRequest: models.NewPageRequest(1, 10, 10)})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "Ann Lee", users[0].Name)
}

func TestUserGetSelfOrAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := f.user(t, "Root Admin", models.UserRoleAdmin)
	ann := f.user(t, "Ann Lee", models.UserRoleMember)
	bob := f.user(t, "Bob Stone", models.UserRoleMember)
	p := f.project(t, bob, "Launch")
	f.addMember(t, bob, p.ID, ann, models.MemberRoleViewer)

	u, projects, err := f.users.Get(ctx, ann, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", u.Name)
	require.Len(t, projects, 1)
	assert.Equal(t, "Launch", projects[0].Name)

	_, _, err = f.users.Get(ctx, ann, bob.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, _, err = f.users.Get(ctx, root, bob.ID)
	require.NoError(t, err)
	_, _, err = f.users.Get(ctx, root, 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUserUpdateGuardsRoleAndStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := f.user(t, "Root Admin", models.UserRoleAdmin)
	ann := f.user(t, "Ann Lee", models.UserRoleMember)

	admin := models.UserRoleAdmin
	_, err := f.users.Update(ctx, ann, ann.ID, UserPatch{Role: &admin})
	require.Error(t, err)
	assert.Equal(t, "Only admin can change user roles", err.Error())

	away := models.UserStatusAway
	_, err = f.users.Update(ctx, ann, ann.ID, UserPatch{Status: &away})
	assert.Equal(t, "Only admin can change user status", err.Error())

	u, err := f.users.Update(ctx, ann, ann.ID, UserPatch{
		Department: ptr("  Design "), TelegramChatID: ptr(int64(4411)), NotifyTelegram: ptr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "Design", u.Department)
	assert.EqualValues(t, 4411, u.TelegramChatID)
	assert.True(t, u.NotifyTelegram)

	_, err = f.users.Update(ctx, ann, ann.ID, UserPatch{Phone: ptr("call me")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	u, err = f.users.Update(ctx, root, ann.ID, UserPatch{Role: &admin})
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleAdmin, u.Role)
}

func TestUserStatusIsSelfOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := f.user(t, "Root Admin", models.UserRoleAdmin)
	ann := f.user(t, "Ann Lee", models.UserRoleMember)

	_, err := f.users.UpdateStatus(ctx, root, ann.ID, models.UserStatusAway)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	f.advance(5 * time.Minute)
	u, err := f.users.UpdateStatus(ctx, ann, ann.ID, models.UserStatusAway)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusAway, u.Status)
	require.NotNil(t, u.LastActive)
	assert.True(t, u.LastActive.Equal(f.now))

	_, err = f.users.UpdateStatus(ctx, ann, ann.ID, "sleeping")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUserDeleteHandsProjectsToAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := f.user(t, "Root Admin", models.UserRoleAdmin)
	ann := f.user(t, "Ann Lee", models.UserRoleMember)
	p := f.project(t, ann, "Launch")
	task, err := f.tasks.Create(ctx, ann, TaskInput{Title: "Draft brief", ProjectID: p.ID, AssignedTo: &ann.ID})
	require.NoError(t, err)

	err = f.users.Delete(ctx, root, root.ID)
	require.Error(t, err)
	assert.Equal(t, "Cannot delete your own account", err.Error())
	assert.True(t, apperr.Is(f.users.Delete(ctx, ann, root.ID), apperr.KindForbidden))
	assert.True(t, apperr.Is(f.users.Delete(ctx, root, 999), apperr.KindNotFound))

	require.NoError(t, f.users.Delete(ctx, root, ann.ID))

	proj, err := f.store.Projects.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, proj.CreatedBy)
	assert.Empty(t, proj.Members)
	got, err := f.store.Tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedTo)
	_, err = f.store.Users.GetByID(ctx, ann.ID)
	assert.Error(t, err)
}

func TestTeamOverviewStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := f.user(t, "Root Admin", models.UserRoleAdmin)
	ann := f.user(t, "Ann Lee", models.UserRoleMember)
	f.user(t, "Bob Stone", models.UserRoleViewer)
	_, err := f.users.Update(ctx, ann, ann.ID, UserPatch{Department: ptr("Design")})
	require.NoError(t, err)
	_, err = f.users.Update(ctx, root, root.ID, UserPatch{Department: ptr("Ops")})
	require.NoError(t, err)
	_, err = f.users.UpdateStatus(ctx, ann, ann.ID, models.UserStatusActive)
	require.NoError(t, err)
	f.project(t, ann, "Launch")

	team := NewTeamService(f.store.Users, f.store.Projects)
	out, err := team.Overview(ctx, TeamQuery{})
	require.NoError(t, err)
	assert.Len(t, out.Members, 3)
	assert.Equal(t, models.TeamStats{
		TotalMembers: 3, ActiveMembers: 1, AdminCount: 1, TotalProjects: 1, Departments: 2,
	}, out.Stats)

	viewer := models.UserRoleViewer
	out, err = team.Overview(ctx, TeamQuery{Role: &viewer})
	require.NoError(t, err)
	require.Len(t, out.Members, 1)
	assert.Equal(t, "Bob Stone", out.Members[0].Name)
	assert.Equal(t, 3, out.Stats.TotalMembers)
}
