package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamhub/internal/apperr"
	"teamhub/internal/models"
)

type stubIssuer struct{ n int }

func (s *stubIssuer) Issue(userID int64, role string) (string, time.Time, error) {
	s.n++
	return fmt.Sprintf("access-%d-%s-%d", userID, role, s.n), t0.Add(time.Hour), nil
}

func newAuth(f *fixture) AuthService {
	return NewAuthService(f.store.Users, &stubIssuer{}, 7*24*time.Hour, func() time.Time { return f.now })
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	auth := newAuth(f)

	u, tokens, err := auth.Register(ctx, RegisterInput{Name: "Ann Lee", Email: "Ann@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, models.UserRoleMember, u.Role)
	assert.Equal(t, models.UserStatusActive, u.Status)
	assert.True(t, u.NotifyEmail)
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.Equal(t, fmt.Sprintf("access-%d-member-1", u.ID), tokens.AccessToken)
	assert.Len(t, tokens.RefreshToken, 64)

	_, _, err = auth.Register(ctx, RegisterInput{Name: "Ann Again", Email: "ann@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, "User with this email already exists", err.Error())

	_, _, err = auth.Register(ctx, RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "12345"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, _, err = auth.Login(ctx, "ann@example.com", "wrong")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, _, err = auth.Login(ctx, "nobody@example.com", "secret1")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	f.advance(time.Hour)
	me, _, err := auth.Login(ctx, "ANN@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, me.Status)
	require.NotNil(t, me.LastActive)
	assert.True(t, me.LastActive.Equal(f.now))
}

func TestRefreshRotatesToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	auth := newAuth(f)
	_, first, err := auth.Register(ctx, RegisterInput{Name: "Ann Lee", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	second, err := auth.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = auth.Refresh(ctx, first.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, "Invalid refresh token", err.Error())

	f.advance(8 * 24 * time.Hour)
	_, err = auth.Refresh(ctx, second.RefreshToken)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	assert.Equal(t, "Refresh token expired", err.Error())
}

func TestLogoutRevokesRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	auth := newAuth(f)
	u, tokens, err := auth.Register(ctx, RegisterInput{Name: "Ann Lee", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)
	actor := Actor{ID: u.ID, Role: string(u.Role)}

	require.NoError(t, auth.Logout(ctx, actor))
	_, err = auth.Refresh(ctx, tokens.RefreshToken)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	me, err := auth.Me(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", me.Name)
	_, err = auth.Me(ctx, Actor{ID: 404})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
