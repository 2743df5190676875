package main

import (
	"context"

	"habit_reminder_service/internal/infra/config"
	idb "habit_reminder_service/internal/infra/database"
	"habit_reminder_service/internal/infra/logger"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg)
	log := logger.Component("migrate")

	db, err := idb.NewPostgresConnection(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	log.Info("Starting database migrations...")
	if err := idb.RunMigrations(db, log); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}
	log.Info("All migrations completed successfully")
}
