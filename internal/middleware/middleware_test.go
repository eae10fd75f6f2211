package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func whoami(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"id": c.GetInt64(CtxUserID), "role": c.GetString(CtxRole)})
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	m := NewJWTManager("s3cret", time.Minute)
	r := gin.New()
	r.GET("/me", AuthMiddleware(m), whoami)

	token, exp, err := m.Issue(42, "member")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)

	w := do(r, http.MethodGet, "/me", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":42,"role":"member"}`, w.Body.String())

	w = do(r, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"No token, authorization denied"}`, w.Body.String())

	other, _, err := NewJWTManager("other", time.Minute).Issue(42, "admin")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", other).Code)
}

func TestExpiredTokenHonoursLeeway(t *testing.T) {
	m := NewJWTManager("s3cret", time.Minute)
	past := time.Now().Add(-2 * time.Minute)
	m.now = func() time.Time { return past }
	withinLeeway, _, err := m.Issue(1, "member")
	require.NoError(t, err)
	m.now = func() time.Time { return past.Add(-time.Hour) }
	stale, _, err := m.Issue(1, "member")
	require.NoError(t, err)
	m.now = time.Now

	_, err = m.Parse(withinLeeway)
	assert.NoError(t, err)
	_, err = m.Parse(stale)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestRoleGuards(t *testing.T) {
	m := NewJWTManager("s3cret", time.Minute)
	r := gin.New()
	api := r.Group("/", AuthMiddleware(m), ReadOnlyGuard())
	api.GET("/things", whoami)
	api.POST("/things", whoami)
	api.GET("/admin", RequireRoles("admin"), whoami)

	viewer, _, _ := m.Issue(1, "viewer")
	member, _, _ := m.Issue(2, "member")
	admin, _, _ := m.Issue(3, "admin")

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/things", viewer).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/things", viewer).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/things", member).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/admin", member).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/admin", admin).Code)
}

func TestRequestIDEchoesValidIDs(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxRequestID)) })

	w := do(r, http.MethodGet, "/ping", "")
	generated := w.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "6f1c1a0e-3b9f-4c55-9a57-0b7f0f0e2a11")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "6f1c1a0e-3b9f-4c55-9a57-0b7f0f0e2a11", w.Header().Get(HeaderRequestID))

	req.Header.Set(HeaderRequestID, "not-a-uuid")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "not-a-uuid", w.Header().Get(HeaderRequestID))
}

func setupTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestLimiterSlidingWindow(t *testing.T) {
	client := setupTestRedis(t)
	l := NewLimiter(client, "test:login:", 3, time.Minute)
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 2; i >= 0; i-- {
		res, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, i, res.Remaining)
		now = now.Add(time.Second)
	}
	res, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Date(2025, 3, 3, 9, 1, 0, 0, time.UTC), res.ResetAt.UTC())

	res, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// the first hit has slid out of the window
	now = time.Date(2025, 3, 3, 9, 1, 0, 500e6, time.UTC)
	res, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLoginRateLimitMiddleware(t *testing.T) {
	client := setupTestRedis(t)
	r := gin.New()
	r.POST("/login", LoginRateLimit(NewLimiter(client, "login:", 2, time.Minute)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/login", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/login", "").Code)
	w := do(r, http.MethodPost, "/login", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"success":false`)

	// an unreachable redis fails open
	down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer down.Close()
	open := gin.New()
	open.POST("/login", LoginRateLimit(NewLimiter(down, "login:", 1, time.Minute)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, do(open, http.MethodPost, "/login", "").Code)
}
