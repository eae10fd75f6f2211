package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 8081
app:
  env: production
database:
  url: postgres://teamhub@localhost/teamhub?sslmode=disable
auth:
  jwt_secret: from-file
  access_ttl: 5m
notifications:
  completion_policy: always
redis:
  login_limit: 3
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileAndDefaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	cfg.applyDefaults()

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, EnvProduction, cfg.App.Env)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Notifications.TTL)
	assert.Equal(t, CompletionAlways, cfg.Notifications.CompletionPolicy)
	assert.Equal(t, "@hourly", cfg.Notifications.ReaperSchedule)
	assert.Equal(t, 3, cfg.Redis.LoginLimit)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileMissingIsEmpty(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	cfg.applyDefaults()
	assert.Equal(t, EnvDevelopment, cfg.App.Env)
	assert.NotEmpty(t, cfg.Auth.JWTSecret)
	assert.True(t, cfg.IsDevelopment())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TEAMHUB_CONFIG", writeConfig(t, sampleYAML))
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", "localhost:6380")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "localhost:6380", cfg.Redis.Addr)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.App.Env = EnvProduction
	cfg.applyDefaults()
	assert.Error(t, cfg.Validate(), "production requires a jwt secret")

	cfg.Auth.JWTSecret = "s"
	assert.Error(t, cfg.Validate(), "production requires a database url")

	cfg.Database.DSN = "postgres://x"
	require.NoError(t, cfg.Validate())

	cfg.Notifications.CompletionPolicy = "sometimes"
	assert.Error(t, cfg.Validate())
}
