package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	CompletionOnTransition = "on_transition"
	CompletionAlways       = "always"

	defaultConfigPath = "config/config.yaml"
)

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type AppConfig struct {
	Env string `yaml:"env"`
	// PublicURL prefixes action links in outgoing emails and telegram messages.
	PublicURL string `yaml:"public_url"`
}

type DatabaseConfig struct {
	DSN     string `yaml:"url"`
	MaxOpen int    `yaml:"max_open"`
	MaxIdle int    `yaml:"max_idle"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

type NotificationsConfig struct {
	TTL              time.Duration `yaml:"ttl"`
	CompletionPolicy string        `yaml:"completion_policy"`
	ReaperSchedule   string        `yaml:"reaper_schedule"`
}

type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	LoginLimit  int           `yaml:"login_limit"`
	LoginWindow time.Duration `yaml:"login_window"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
}

type ReportsConfig struct {
	FontPath string `yaml:"font_path"`
}

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	App           AppConfig           `yaml:"app"`
	Database      DatabaseConfig      `yaml:"database"`
	Auth          AuthConfig          `yaml:"auth"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Redis         RedisConfig         `yaml:"redis"`
	Email         EmailConfig         `yaml:"email"`
	Telegram      TelegramConfig      `yaml:"telegram"`
	Reports       ReportsConfig       `yaml:"reports"`
}

// Load reads .env (if present), the YAML file at TEAMHUB_CONFIG or config/config.yaml,
// then applies env overrides and defaults. A missing YAML file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] no .env file found, using environment variables")
	}

	path := getEnv("TEAMHUB_CONFIG", defaultConfigPath)
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("[config] %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Database.DSN = getEnv("DATABASE_URL", c.Database.DSN)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.App.Env = getEnv("APP_ENV", c.App.Env)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Email.SMTPPassword = getEnv("SMTP_PASSWORD", c.Email.SMTPPassword)
	c.Telegram.BotToken = getEnv("TELEGRAM_BOT_TOKEN", c.Telegram.BotToken)
	c.Server.Port = getEnvAsInt("PORT", c.Server.Port)
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:5173"}
	}
	if c.App.Env == "" {
		c.App.Env = EnvDevelopment
	}
	if c.App.PublicURL == "" {
		c.App.PublicURL = "http://localhost:5173"
	}
	if c.Database.MaxOpen == 0 {
		c.Database.MaxOpen = 25
	}
	if c.Database.MaxIdle == 0 {
		c.Database.MaxIdle = 5
	}
	if c.Auth.AccessTTL == 0 {
		c.Auth.AccessTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTTL == 0 {
		c.Auth.RefreshTTL = 30 * 24 * time.Hour
	}
	if c.Auth.JWTSecret == "" && c.App.Env == EnvDevelopment {
		c.Auth.JWTSecret = "dev-secret-change-me"
	}
	if c.Notifications.TTL == 0 {
		c.Notifications.TTL = 30 * 24 * time.Hour
	}
	if c.Notifications.CompletionPolicy == "" {
		c.Notifications.CompletionPolicy = CompletionOnTransition
	}
	if c.Notifications.ReaperSchedule == "" {
		c.Notifications.ReaperSchedule = "@hourly"
	}
	if c.Redis.LoginLimit == 0 {
		c.Redis.LoginLimit = 10
	}
	if c.Redis.LoginWindow == 0 {
		c.Redis.LoginWindow = 15 * time.Minute
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
}

func (c *Config) Validate() error {
	if c.App.Env != EnvDevelopment && c.App.Env != EnvProduction {
		return fmt.Errorf("app.env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.App.Env)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.App.Env == EnvProduction && c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_URL is required in production")
	}
	switch c.Notifications.CompletionPolicy {
	case CompletionOnTransition, CompletionAlways:
	default:
		return fmt.Errorf("unknown notifications.completion_policy %q", c.Notifications.CompletionPolicy)
	}
	return nil
}

func (c *Config) TelegramEnabled() bool { return c.Telegram.BotToken != "" }

func (c *Config) IsDevelopment() bool { return c.App.Env == EnvDevelopment }

func (c *Config) EmailEnabled() bool {
	return c.Email.SMTPHost != "" && c.Email.FromEmail != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("[config][warn] %s=%q is not an integer", key, value)
	}
	return defaultValue
}
