package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reminders?sslmode=disable")
	t.Setenv("CRON_SECRET", "s3cret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.Equal(t, time.Second, cfg.RetryBaseDelay)
	assert.Equal(t, 24*time.Hour, cfg.StaleGracePeriod)
	assert.Equal(t, 1, cfg.SweepWorkers)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.AIBaseURL)
	assert.Equal(t, "llama-3.1-70b-versatile", cfg.AIModel)
	assert.Equal(t, "* * * * *", cfg.CronSpecSweep)
	assert.False(t, cfg.InternalCronEnabled)
	assert.Zero(t, cfg.AdminTelegramID)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("ADMIN_TELEGRAM_ID", "123456")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("RETRY_BASE_DELAY", "250ms")
	t.Setenv("SWEEP_WORKERS", "4")
	t.Setenv("INTERNAL_CRON_ENABLED", "true")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_USER", "bot@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, int64(123456), cfg.AdminTelegramID)
	assert.Equal(t, 5, cfg.RetryMaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 4, cfg.SweepWorkers)
	assert.True(t, cfg.InternalCronEnabled)
	assert.Equal(t, "bot@example.com", cfg.SMTPFrom, "from defaults to the SMTP user")
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing database url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		t.Setenv("CRON_SECRET", "x")
		_, err := Load()
		assert.ErrorContains(t, err, "DATABASE_URL")
	})
	t.Run("missing cron secret", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://x")
		t.Setenv("CRON_SECRET", "")
		_, err := Load()
		assert.ErrorContains(t, err, "CRON_SECRET")
	})

	bad := map[string]string{
		"ADMIN_TELEGRAM_ID":     "admin",
		"RETRY_BASE_DELAY":      "soon",
		"RETRY_MAX_ATTEMPTS":    "0",
		"SWEEP_WORKERS":         "many",
		"INTERNAL_CRON_ENABLED": "maybe",
	}
	for key, val := range bad {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, val)
			_, err := Load()
			assert.ErrorContains(t, err, key)
		})
	}
}
