package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"teamhub/internal/authz"
	"teamhub/internal/handlers"
	"teamhub/internal/middleware"
	"teamhub/internal/validation"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Projects      *handlers.ProjectHandler
	Tasks         *handlers.TaskHandler
	Discussions   *handlers.DiscussionHandler
	Notifications *handlers.NotificationHandler
	Users         *handlers.UserHandler
	Teams         *handlers.TeamHandler
	Health        *handlers.HealthHandler
}

// SetupRoutes mounts the API under /api. loginLimiter may be nil (no Redis configured).
func SetupRoutes(r *gin.Engine, h Handlers, jwt *middleware.JWTManager, loginLimiter *middleware.Limiter) *gin.Engine {
	validation.RegisterGin()
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")

	// ---- public
	api.GET("/health", h.Health.Health)
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		if loginLimiter != nil {
			auth.POST("/login", middleware.LoginRateLimit(loginLimiter), h.Auth.Login)
		} else {
			auth.POST("/login", h.Auth.Login)
		}
		auth.POST("/refresh", h.Auth.Refresh)
	}

	// ---- protected
	protected := api.Group("", middleware.AuthMiddleware(jwt))
	protected.POST("/auth/logout", h.Auth.Logout)
	protected.GET("/auth/me", h.Auth.Me)

	// viewer-аккаунты только читают проекты, задачи и обсуждения
	work := protected.Group("", middleware.ReadOnlyGuard())

	// PROJECTS
	projects := work.Group("/projects")
	{
		projects.GET("", h.Projects.List)
		projects.POST("", h.Projects.Create)
		projects.GET("/:id", h.Projects.Get)
		projects.PUT("/:id", h.Projects.Update)
		projects.DELETE("/:id", h.Projects.Delete)
		projects.GET("/:id/report", h.Projects.Report)
		projects.POST("/:id/members", h.Projects.AddMember)
		projects.PUT("/:id/members/:userId", h.Projects.UpdateMemberRole)
		projects.DELETE("/:id/members/:userId", h.Projects.RemoveMember)
	}

	// TASKS
	tasks := work.Group("/tasks")
	{
		tasks.GET("", h.Tasks.List)
		tasks.POST("", h.Tasks.Create)
		tasks.GET("/:id", h.Tasks.Get)
		tasks.PUT("/:id", h.Tasks.Update)
		tasks.DELETE("/:id", h.Tasks.Delete)
		tasks.POST("/:id/comments", h.Tasks.AddComment)
		tasks.POST("/:id/subtasks", h.Tasks.AddSubtask)
		tasks.PUT("/:id/subtasks/:index/toggle", h.Tasks.ToggleSubtask)
	}
	comments := work.Group("/comments")
	{
		comments.POST("/:id/reactions", h.Tasks.React)
		comments.DELETE("/:id/reactions/:emoji", h.Tasks.Unreact)
	}

	// DISCUSSIONS
	discussions := work.Group("/discussions")
	{
		discussions.GET("", h.Discussions.List)
		discussions.POST("", h.Discussions.Create)
		discussions.GET("/:id", h.Discussions.Get)
		discussions.POST("/:id/messages", h.Discussions.PostMessage)
		discussions.PUT("/:id/pin", h.Discussions.TogglePin)
		discussions.PUT("/:id/lock", h.Discussions.ToggleLock)
	}

	// NOTIFICATIONS (только свои)
	notifications := protected.Group("/notifications")
	{
		notifications.GET("", h.Notifications.List)
		notifications.GET("/unread-count", h.Notifications.UnreadCount)
		notifications.PUT("/mark-all-read", h.Notifications.MarkAllRead)
		notifications.DELETE("/clear-all", h.Notifications.ClearAll)
		notifications.POST("/test", h.Notifications.CreateTest)
		notifications.PUT("/:id/read", h.Notifications.MarkRead)
		notifications.PUT("/:id/unread", h.Notifications.MarkUnread)
		notifications.DELETE("/:id", h.Notifications.Delete)
	}

	// USERS
	users := protected.Group("/users")
	{
		users.GET("", middleware.RequireRoles(authz.RoleAdmin), h.Users.List)
		users.GET("/:id", h.Users.Get)
		users.PUT("/:id", h.Users.Update)
		users.PUT("/:id/status", h.Users.UpdateStatus)
		users.DELETE("/:id", middleware.RequireRoles(authz.RoleAdmin), h.Users.Delete)
	}

	protected.GET("/teams", h.Teams.Overview)

	return r
}
