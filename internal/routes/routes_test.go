package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamhub/internal/handlers"
	"teamhub/internal/middleware"
	"teamhub/internal/models"
	"teamhub/internal/pdf"
	"teamhub/internal/repositories"
	"teamhub/internal/repositories/memstore"
	"teamhub/internal/services"
)

func init() { gin.SetMode(gin.TestMode) }

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

type server struct {
	router *gin.Engine
	store  *repositories.Store
	jwt    *middleware.JWTManager
	notify *services.Dispatcher
}

func newServer(t *testing.T, development bool, limiter *middleware.Limiter) *server {
	t.Helper()
	store := memstore.New()
	jwt := middleware.NewJWTManager("test-secret", 15*time.Minute)
	notify := services.NewDispatcher(store.Notifications, store.Users, services.DefaultNotificationTTL, nil)

	h := Handlers{
		Auth:          handlers.NewAuthHandler(services.NewAuthService(store.Users, jwt, time.Hour, nil)),
		Projects:      handlers.NewProjectHandler(services.NewProjectService(store, notify, nil), pdf.NewReportGenerator("")),
		Tasks:         handlers.NewTaskHandler(services.NewTaskService(store, notify, services.CompletionOnTransition, nil)),
		Discussions:   handlers.NewDiscussionHandler(services.NewDiscussionService(store, notify, nil)),
		Notifications: handlers.NewNotificationHandler(services.NewNotificationService(store.Notifications, notify, development, nil)),
		Users:         handlers.NewUserHandler(services.NewUserService(store, nil)),
		Teams:         handlers.NewTeamHandler(services.NewTeamService(store.Users, store.Projects)),
		Health:        handlers.NewHealthHandler(nil),
	}
	r := gin.New()
	r.Use(middleware.RequestID())
	return &server{router: SetupRoutes(r, h, jwt, limiter), store: store, jwt: jwt, notify: notify}
}

func (s *server) call(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type account struct {
	ID    int64
	Token string
}

func (s *server) register(t *testing.T, name, email string) account {
	t.Helper()
	code, env := s.call(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": name, "email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	data := decode[struct {
		User   models.User     `json:"user"`
		Tokens services.Tokens `json:"tokens"`
	}](t, env.Data)
	return account{ID: data.User.ID, Token: data.Tokens.AccessToken}
}

// seeded creates an account with a site role registration cannot grant.
func (s *server) seeded(t *testing.T, name string, role models.UserRole) account {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Role: role, Status: models.UserStatusActive}
	require.NoError(t, s.store.Users.Create(context.Background(), u))
	token, _, err := s.jwt.Issue(u.ID, string(role))
	require.NoError(t, err)
	return account{ID: u.ID, Token: token}
}

type idOnly struct {
	ID int64 `json:"id"`
}

func (s *server) createProject(t *testing.T, owner account, name string) int64 {
	t.Helper()
	code, env := s.call(t, http.MethodPost, "/api/projects", owner.Token, gin.H{
		"name": name, "description": "First release", "startDate": "2025-01-01",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.Equal(t, "Project created successfully", env.Message)
	return decode[struct {
		Project idOnly `json:"project"`
	}](t, env.Data).Project.ID
}

func (s *server) addMember(t *testing.T, admin account, projectID, userID int64) {
	t.Helper()
	code, env := s.call(t, http.MethodPost, fmt.Sprintf("/api/projects/%d/members", projectID), admin.Token, gin.H{
		"userId": userID, "role": "member",
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "Member added successfully", env.Message)
}

func TestPinRequiresProjectAdmin(t *testing.T) {
	s := newServer(t, true, nil)
	a := s.register(t, "Ann Lee", "ann@example.com")
	b := s.register(t, "Bob Stone", "bob@example.com")

	projectID := s.createProject(t, a, "Launch")
	s.addMember(t, a, projectID, b.ID)

	code, env := s.call(t, http.MethodPost, "/api/discussions", b.Token, gin.H{
		"title": "Release checklist", "projectId": projectID,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	discussionID := decode[struct {
		Discussion idOnly `json:"discussion"`
	}](t, env.Data).Discussion.ID
	pin := fmt.Sprintf("/api/discussions/%d/pin", discussionID)

	code, env = s.call(t, http.MethodPut, pin, b.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, env.Success)

	code, env = s.call(t, http.MethodPut, pin, a.Token, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "Discussion pinned successfully", env.Message)
	assert.True(t, decode[struct {
		Discussion models.DiscussionView `json:"discussion"`
	}](t, env.Data).Discussion.IsPinned)

	code, env = s.call(t, http.MethodPut, pin, a.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Discussion unpinned successfully", env.Message)
}

func TestTaskAssignmentReachesInbox(t *testing.T) {
	s := newServer(t, true, nil)
	a := s.register(t, "Ann Lee", "ann@example.com")
	b := s.register(t, "Bob Stone", "bob@example.com")
	projectID := s.createProject(t, a, "Launch")
	s.addMember(t, a, projectID, b.ID)

	code, env := s.call(t, http.MethodPost, "/api/tasks", a.Token, gin.H{
		"title": "Write release notes", "projectId": projectID, "assignedTo": b.ID, "priority": "urgent",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	taskID := decode[struct {
		Task idOnly `json:"task"`
	}](t, env.Data).Task.ID

	type inbox struct {
		Notifications []models.Notification `json:"notifications"`
		UnreadCount   int                   `json:"unreadCount"`
		Pagination    models.Pagination     `json:"pagination"`
	}
	code, env = s.call(t, http.MethodGet, "/api/notifications?type=task_assigned&isRead=false", b.Token, nil)
	require.Equal(t, http.StatusOK, code)
	got := decode[inbox](t, env.Data)
	require.Len(t, got.Notifications, 1)
	assert.Equal(t, models.NotifTaskAssigned, got.Notifications[0].Type)
	assert.Equal(t, models.PriorityHigh, got.Notifications[0].Priority)
	assert.Equal(t, 2, got.UnreadCount, "team invite plus the assignment")

	code, env = s.call(t, http.MethodPut, fmt.Sprintf("/api/notifications/%d/read", got.Notifications[0].ID), a.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.call(t, http.MethodPut, fmt.Sprintf("/api/notifications/%d/read", got.Notifications[0].ID), b.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Notification marked as read", env.Message)

	code, env = s.call(t, http.MethodPut, fmt.Sprintf("/api/tasks/%d", taskID), a.Token, gin.H{"status": "completed"})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "Task updated successfully", env.Message)

	code, env = s.call(t, http.MethodGet, "/api/notifications/unread-count", b.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, decode[struct {
		UnreadCount int `json:"unreadCount"`
	}](t, env.Data).UnreadCount, "team invite plus the completion")

	code, env = s.call(t, http.MethodGet, fmt.Sprintf("/api/tasks?projectId=%d&status=completed", projectID), b.Token, nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[struct {
		Tasks      []models.TaskView `json:"tasks"`
		Pagination models.Pagination `json:"pagination"`
	}](t, env.Data)
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, 100, list.Tasks[0].CompletionPercentage)
	assert.Equal(t, 1, list.Pagination.Total)
	s.notify.Wait()
}

func TestValidationEnvelope(t *testing.T) {
	s := newServer(t, true, nil)
	a := s.register(t, "Ann Lee", "ann@example.com")

	code, env := s.call(t, http.MethodPost, "/api/tasks", a.Token, gin.H{"title": "", "projectId": 0, "priority": "whenever"})
	require.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
	assert.Equal(t, "Validation failed", env.Message)
	msgs := map[string]string{}
	for _, e := range env.Errors {
		msgs[e.Field] = e.Message
	}
	assert.Equal(t, "Task title is required and cannot exceed 200 characters", msgs["title"])
	assert.Equal(t, "Valid project ID is required", msgs["projectId"])
	assert.Equal(t, "Invalid priority", msgs["priority"])

	code, env = s.call(t, http.MethodPut, fmt.Sprintf("/api/users/%d", a.ID), a.Token, gin.H{"phone": "12-ab", "status": "busy", "name": "A"})
	require.Equal(t, http.StatusBadRequest, code)
	msgs = map[string]string{}
	for _, e := range env.Errors {
		msgs[e.Field] = e.Message
	}
	assert.Equal(t, "Please enter a valid phone number", msgs["phone"])
	assert.Equal(t, "Invalid status", msgs["status"])
	assert.Equal(t, "Name must be between 2 and 50 characters", msgs["name"])

	code, env = s.call(t, http.MethodPut, fmt.Sprintf("/api/users/%d", a.ID), a.Token, gin.H{"phone": ""})
	assert.Equal(t, http.StatusOK, code, env.Message)

	code, env = s.call(t, http.MethodPost, "/api/projects", a.Token, gin.H{
		"name": "Launch", "description": "x", "startDate": "someday", "color": "#fff",
	})
	require.Equal(t, http.StatusBadRequest, code)
	msgs = map[string]string{}
	for _, e := range env.Errors {
		msgs[e.Field] = e.Message
	}
	assert.Equal(t, "Valid start date is required", msgs["startDate"])
	assert.Equal(t, "Valid hex color is required", msgs["color"])

	code, env = s.call(t, http.MethodPost, "/api/tasks", a.Token, `{"title":`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "body", env.Errors[0].Field)

	code, env = s.call(t, http.MethodGet, "/api/tasks/abc", a.Token, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.call(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Ann Two", "email": "ANN@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "User with this email already exists", env.Message)
}

func TestSiteRoleGuards(t *testing.T) {
	s := newServer(t, true, nil)
	admin := s.seeded(t, "root", models.UserRoleAdmin)
	viewer := s.seeded(t, "watcher", models.UserRoleViewer)
	member := s.register(t, "Ann Lee", "ann@example.com")

	code, env := s.call(t, http.MethodPost, "/api/projects", viewer.Token, gin.H{
		"name": "Nope", "description": "x", "startDate": "2025-01-01",
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Read-only account", env.Message)

	code, _ = s.call(t, http.MethodGet, "/api/projects", viewer.Token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.call(t, http.MethodPut, "/api/notifications/mark-all-read", viewer.Token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, env = s.call(t, http.MethodPut, fmt.Sprintf("/api/users/%d/status", viewer.ID), viewer.Token, gin.H{"status": "away"})
	assert.Equal(t, http.StatusOK, code, env.Message)

	code, env = s.call(t, http.MethodGet, "/api/users", member.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Access denied", env.Message)

	code, env = s.call(t, http.MethodGet, "/api/users?role=viewer", admin.Token, nil)
	require.Equal(t, http.StatusOK, code)
	users := decode[struct {
		Users []models.User `json:"users"`
	}](t, env.Data).Users
	require.Len(t, users, 1)
	assert.Equal(t, viewer.ID, users[0].ID)

	code, env = s.call(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", admin.ID), admin.Token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Cannot delete your own account", env.Message)

	code, env = s.call(t, http.MethodGet, "/api/teams", member.Token, nil)
	require.Equal(t, http.StatusOK, code)
	team := decode[services.TeamOverview](t, env.Data)
	assert.Equal(t, 3, team.Stats.TotalMembers)
	assert.Equal(t, 1, team.Stats.AdminCount)

	code, _ = s.call(t, http.MethodGet, "/api/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestTestNotificationGate(t *testing.T) {
	body := gin.H{"type": "project_update", "title": "Ping", "message": "Hello"}

	dev := newServer(t, true, nil)
	a := dev.register(t, "Ann Lee", "ann@example.com")
	code, env := dev.call(t, http.MethodPost, "/api/notifications/test", a.Token, body)
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.Equal(t, "Test notification created", env.Message)

	prod := newServer(t, false, nil)
	b := prod.register(t, "Bob Stone", "bob@example.com")
	code, env = prod.call(t, http.MethodPost, "/api/notifications/test", b.Token, body)
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, env.Success)
}

func TestProjectReportIsPDF(t *testing.T) {
	s := newServer(t, true, nil)
	a := s.register(t, "Ann Lee", "ann@example.com")
	outsider := s.register(t, "Eve Moss", "eve@example.com")
	projectID := s.createProject(t, a, "Launch")

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/projects/%d/report", projectID), nil)
	req.Header.Set("Authorization", "Bearer "+a.Token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	code, _ := s.call(t, http.MethodGet, fmt.Sprintf("/api/projects/%d/report", projectID), outsider.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestHealthAndLoginLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := newServer(t, true, middleware.NewLimiter(client, "test:login", 2, time.Minute))
	code, env := s.call(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	s.register(t, "Ann Lee", "ann@example.com")
	creds := gin.H{"email": "ann@example.com", "password": "secret123"}
	for i := 0; i < 2; i++ {
		code, env = s.call(t, http.MethodPost, "/api/auth/login", "", creds)
		require.Equal(t, http.StatusOK, code, env.Message)
		assert.Equal(t, "Login successful", env.Message)
	}
	code, env = s.call(t, http.MethodPost, "/api/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "Too many login attempts, please try again later", env.Message)
}
