package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"habit_reminder_service/internal/app"
	domainAI "habit_reminder_service/internal/domain/ai"
	domainEmail "habit_reminder_service/internal/domain/email"
	domainTelegram "habit_reminder_service/internal/domain/telegram"
	"habit_reminder_service/internal/infra/ai"
	"habit_reminder_service/internal/infra/config"
	idb "habit_reminder_service/internal/infra/database"
	"habit_reminder_service/internal/infra/email"
	"habit_reminder_service/internal/infra/httpapi"
	"habit_reminder_service/internal/infra/lock"
	"habit_reminder_service/internal/infra/logger"
	"habit_reminder_service/internal/infra/retry"
	"habit_reminder_service/internal/infra/scheduler"
	"habit_reminder_service/internal/infra/telegram"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"environment":   cfg.Environment,
		"http_addr":     cfg.HTTPAddr,
		"sweep_workers": cfg.SweepWorkers,
	}).Info("Habit reminder service starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established successfully")

	// Initialize Repositories
	reminderRepo := idb.NewPostgresReminderRepository(db)
	userRepo := idb.NewPostgresUserRepository(db)

	policy := retry.Policy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		OnRetry:     retry.LogRetries(logger.Component("retry")),
	}

	// Optional channels. Interfaces stay nil when a channel is not configured.
	var bot *telebot.Bot
	var chatClient domainTelegram.Client
	if cfg.TelegramToken != "" {
		botLogger := logger.Component("telebot")
		bot, err = telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				entry := botLogger.WithError(err)
				if c != nil && c.Chat() != nil {
					entry = entry.WithField("chat_id", c.Chat().ID)
				}
				entry.Error("Telegram handler error")
			},
		})
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
		chatClient = telegram.NewTelebotAdapter(bot)
		mainLogger.Info("Telegram channel enabled")
	} else {
		mainLogger.Warn("TELEGRAM_TOKEN is not set, chat delivery is disabled")
	}

	var mailer domainEmail.Sender
	if cfg.SMTPHost != "" {
		mailer = email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.AppURL)
		mainLogger.WithField("smtp_host", cfg.SMTPHost).Info("Email channel enabled")
	} else {
		mainLogger.Warn("SMTP_HOST is not set, email delivery is disabled")
	}

	var generator domainAI.Generator
	if cfg.AIAPIKey != "" {
		generator = ai.NewChatGenerator(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
		mainLogger.WithField("model", cfg.AIModel).Info("AI message generation enabled")
	} else {
		mainLogger.Warn("AI_API_KEY is not set, reminders use their fallback text")
	}

	var sweepLock app.SweepLock
	if cfg.RedisURL != "" {
		redisLock, err := lock.NewRedisSweepLock(cfg.RedisURL, cfg.SweepLockTTL, logger.Component("sweep_lock"))
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not configure Redis sweep lock")
		}
		if err := redisLock.Ping(ctx); err != nil {
			mainLogger.WithError(err).Fatal("Could not reach Redis")
		}
		defer redisLock.Close()
		sweepLock = redisLock
		mainLogger.Info("Using Redis sweep lock")
	}

	// Application services
	composer := app.NewMessageComposer(generator, policy, cfg.AITimeout, logger.Component("composer"))
	dispatcher := app.NewDispatcher(chatClient, mailer, reminderRepo, policy, logger.Component("dispatcher"))
	sweepService := app.NewSweepService(reminderRepo, composer, dispatcher, sweepLock, app.SweepConfig{
		Workers:          cfg.SweepWorkers,
		StaleGracePeriod: cfg.StaleGracePeriod,
	}, logger.Component("sweep"))
	reminderService := app.NewReminderService(reminderRepo, userRepo)
	connectService := app.NewConnectService(userRepo)
	adminService := app.NewAdminService(sweepService, cfg.AdminTelegramID)

	// HTTP trigger
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	sweepHandler := httpapi.NewSweepHandler(sweepService, cfg.CronSecret, cfg.SweepTimeout, logger.Component("http"))
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(sweepHandler, logger.Component("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	var sweepScheduler *scheduler.SweepScheduler
	if cfg.InternalCronEnabled {
		sweepScheduler = scheduler.NewSweepScheduler(sweepService, logger.Component("scheduler"), cfg.CronSpecSweep, cfg.SweepTimeout)
		if err := sweepScheduler.Start(); err != nil {
			mainLogger.WithError(err).Fatal("Could not start sweep scheduler")
		}
	}

	if bot != nil {
		handlerLogger := logger.Component("telegram")
		telegram.RegisterBotCommands(ctx, bot, connectService, reminderService, handlerLogger)
		telegram.RegisterReminderCallbacks(ctx, bot, connectService, reminderService, handlerLogger)
		telegram.RegisterAdminHandlers(ctx, bot, adminService, handlerLogger)
		// Start bot in a goroutine so it doesn't block graceful shutdown handling
		go bot.Start()
		mainLogger.Info("Telegram bot started")
	}

	mainLogger.Info("Application setup complete")
	<-ctx.Done()
	stop()

	mainLogger.Info("Shutting down application...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Error("HTTP server shutdown failed")
	}
	if sweepScheduler != nil {
		sweepScheduler.Stop()
	}
	if bot != nil {
		bot.Stop()
	}
	mainLogger.Info("Application shut down gracefully")
}
