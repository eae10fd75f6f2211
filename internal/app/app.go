package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	_ "teamhub/docs"
	"teamhub/internal/config"
	"teamhub/internal/db"
	"teamhub/internal/handlers"
	"teamhub/internal/jobs"
	"teamhub/internal/middleware"
	"teamhub/internal/pdf"
	"teamhub/internal/repositories"
	"teamhub/internal/repositories/memstore"
	"teamhub/internal/routes"
	"teamhub/internal/services"
)

// App holds everything main needs to serve and to shut down.
type App struct {
	Router     *gin.Engine
	Dispatcher *services.Dispatcher
	Reaper     *jobs.NotificationReaper

	db    *sql.DB
	redis *redis.Client
}

// New wires repositories -> services -> handlers -> router from cfg.
// With an empty database url (development only) everything runs on the in-memory store.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	// === Store ===
	var store *repositories.Store
	if cfg.Database.DSN == "" {
		log.Println("[app] database url is empty, using in-memory store")
		store = memstore.New()
	} else {
		conn, err := db.Open(ctx, db.Options{DSN: cfg.Database.DSN, MaxOpen: cfg.Database.MaxOpen, MaxIdle: cfg.Database.MaxIdle})
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, conn); err != nil {
			conn.Close()
			return nil, err
		}
		a.db = conn
		store = repositories.NewPostgresStore(conn)
	}

	// === Notification channels ===
	var channels []services.Channel
	if cfg.EmailEnabled() {
		channels = append(channels, services.NewEmailService(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.SMTPUser,
			cfg.Email.SMTPPassword,
			cfg.Email.FromEmail,
			cfg.App.PublicURL,
		))
	}
	if cfg.TelegramEnabled() {
		bot, err := services.NewTelegramBot(cfg.Telegram.BotToken)
		if err != nil {
			// уведомления в БД всё равно пишутся
			log.Printf("[app][warn] telegram disabled: %v", err)
		} else {
			channels = append(channels, services.NewTelegramService(bot, cfg.App.PublicURL))
		}
	}

	// === Services ===
	jwtManager := middleware.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL)
	a.Dispatcher = services.NewDispatcher(store.Notifications, store.Users, cfg.Notifications.TTL, nil, channels...)

	authService := services.NewAuthService(store.Users, jwtManager, cfg.Auth.RefreshTTL, nil)
	projectService := services.NewProjectService(store, a.Dispatcher, nil)
	taskService := services.NewTaskService(store, a.Dispatcher, services.CompletionPolicy(cfg.Notifications.CompletionPolicy), nil)
	discussionService := services.NewDiscussionService(store, a.Dispatcher, nil)
	notificationService := services.NewNotificationService(store.Notifications, a.Dispatcher, cfg.IsDevelopment(), nil)
	userService := services.NewUserService(store, nil)
	teamService := services.NewTeamService(store.Users, store.Projects)

	a.Reaper = jobs.NewNotificationReaper(store.Notifications, nil)
	if err := a.Reaper.Start(cfg.Notifications.ReaperSchedule); err != nil {
		a.Close()
		return nil, err
	}

	// === Rate limiting (optional) ===
	var loginLimiter *middleware.Limiter
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			log.Printf("[app][warn] redis ping failed, login limiter fails open: %v", err)
		}
		cancel()
		loginLimiter = middleware.NewLimiter(a.redis, "teamhub:login", cfg.Redis.LoginLimit, cfg.Redis.LoginWindow)
	}

	// === Handlers ===
	var pinger handlers.Pinger
	if a.db != nil {
		pinger = a.db
	}
	h := routes.Handlers{
		Auth:          handlers.NewAuthHandler(authService),
		Projects:      handlers.NewProjectHandler(projectService, pdf.NewReportGenerator(cfg.Reports.FontPath)),
		Tasks:         handlers.NewTaskHandler(taskService),
		Discussions:   handlers.NewDiscussionHandler(discussionService),
		Notifications: handlers.NewNotificationHandler(notificationService),
		Users:         handlers.NewUserHandler(userService),
		Teams:         handlers.NewTeamHandler(teamService),
		Health:        handlers.NewHealthHandler(pinger),
	}

	// === Gin ===
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{middleware.HeaderRequestID, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	a.Router = routes.SetupRoutes(router, h, jwtManager, loginLimiter)
	return a, nil
}

// Close releases the database and redis connections.
func (a *App) Close() error {
	var firstErr error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			firstErr = fmt.Errorf("close redis: %w", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close db: %w", err)
		}
	}
	return firstErr
}
