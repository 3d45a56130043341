package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()

	t.Setenv("POSTGRES_USER", "restobook")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "restobook")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestNewDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "restobook.notifications", cfg.AMQP.Exchange)
	assert.Equal(t, "restobook.notifications.email", cfg.AMQP.Queue)
	assert.Equal(t, "http://localhost:8080", cfg.App.BaseURL)
	assert.Equal(t, 10, cfg.App.RateLimit)
	assert.Equal(t, 14, cfg.App.InviteTTLDays)
}

func TestNewMissingRequired(t *testing.T) {
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "restobook")
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_USER")
}

func TestNewInvalidPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "not-a-port")

	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_PORT")
}

func TestNewOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_HOST", "0.0.0.0")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("APP_BASE_URL", "https://booking.vegnbio.fr")
	t.Setenv("APP_RATE_LIMIT", "5")
	t.Setenv("APP_INVITE_TTL_DAYS", "7")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://booking.vegnbio.fr", cfg.App.BaseURL)
	assert.Equal(t, 5, cfg.App.RateLimit)
	assert.Equal(t, 7, cfg.App.InviteTTLDays)
}
