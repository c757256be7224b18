package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8000, cfg.HTTP.Port)
	assert.Equal(t, 20, cfg.Quota.MaxFilesPerUser)
	assert.Equal(t, 15, cfg.Quota.PageSize)
	assert.Equal(t, 15*time.Minute, cfg.Security.JWTAccessTTL)
	assert.Equal(t, 72*time.Hour, cfg.Security.ResetTokenTimeout)
	assert.Equal(t, "dev-access-secret", cfg.Security.JWTAccessSecret)
	assert.Empty(t, cfg.AllowCORSOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FILEVAULT_HTTP_PORT", "9090")
	t.Setenv("FILEVAULT_SECURITY_JWTACCESSSECRET", "a")
	t.Setenv("FILEVAULT_QUOTA_MAXFILESPERUSER", "5")
	t.Setenv("FILEVAULT_ALLOWCORSORIGINS", "http://a.test,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "a", cfg.Security.JWTAccessSecret)
	assert.Equal(t, 5, cfg.Quota.MaxFilesPerUser)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowCORSOrigins)
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("FILEVAULT_ENVIRONMENT", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secrets")
}

func TestLoadWorker_Defaults(t *testing.T) {
	cfg, err := LoadWorker()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"mail:outbound", "filevault:tasks"}, cfg.Streams())
	assert.Equal(t, 30*time.Second, cfg.Queues.ClaimInterval)
	assert.Equal(t, 1025, cfg.SMTP.Port)
}
