package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL string
	CronSecret  string
	HTTPAddr    string
	LogLevel    string
	Environment string
	AppURL      string

	TelegramToken   string // empty disables the chat channel and the bot
	AdminTelegramID int64

	SMTPHost string // empty disables the email channel
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	AIAPIKey  string // empty disables message generation
	AIBaseURL string
	AIModel   string
	AITimeout time.Duration

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration

	StaleGracePeriod time.Duration
	SweepWorkers     int
	SweepTimeout     time.Duration

	InternalCronEnabled bool
	CronSpecSweep       string

	RedisURL     string // empty means an in-process sweep lock
	SweepLockTTL time.Duration
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.CronSecret = os.Getenv("CRON_SECRET")
	if cfg.CronSecret == "" {
		return nil, fmt.Errorf("CRON_SECRET is not set")
	}

	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getEnv("ENVIRONMENT", "development"))
	cfg.AppURL = getEnv("APP_URL", "http://localhost:3000")

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID"); adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	cfg.SMTPUser = os.Getenv("SMTP_USER")
	cfg.SMTPPass = os.Getenv("SMTP_PASS")
	cfg.SMTPFrom = getEnv("SMTP_FROM", cfg.SMTPUser)
	if cfg.SMTPHost != "" && cfg.SMTPFrom == "" {
		return nil, fmt.Errorf("SMTP_FROM is not set")
	}

	cfg.AIAPIKey = os.Getenv("AI_API_KEY")
	cfg.AIBaseURL = getEnv("AI_BASE_URL", "https://api.groq.com/openai/v1")
	cfg.AIModel = getEnv("AI_MODEL", "llama-3.1-70b-versatile")
	if cfg.AITimeout, err = getDuration("AI_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if cfg.RetryMaxAttempts, err = getInt("RETRY_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.RetryMaxAttempts < 1 {
		return nil, fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.RetryBaseDelay, err = getDuration("RETRY_BASE_DELAY", time.Second); err != nil {
		return nil, err
	}

	if cfg.StaleGracePeriod, err = getDuration("STALE_GRACE_PERIOD", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SweepWorkers, err = getInt("SWEEP_WORKERS", 1); err != nil {
		return nil, err
	}
	if cfg.SweepTimeout, err = getDuration("SWEEP_TIMEOUT", 55*time.Second); err != nil {
		return nil, err
	}

	if cfg.InternalCronEnabled, err = getBool("INTERNAL_CRON_ENABLED", false); err != nil {
		return nil, err
	}
	cfg.CronSpecSweep = getEnv("CRON_SPEC_SWEEP", "* * * * *") // every minute

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.SweepLockTTL, err = getDuration("SWEEP_LOCK_TTL", 2*time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
