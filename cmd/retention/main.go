package main

import (
	"context"
	"os"

	"chatroom-service/internal/config"
	"chatroom-service/internal/database"
	"chatroom-service/internal/repository"
	"chatroom-service/internal/services"
	"chatroom-service/pkg/logger"
)

// retention runs a single pruning pass, for use from cron.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.New(logger.Config{}).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "retention"})

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	svc := services.NewRetentionService(repository.NewMessageRepository(db), cfg.Chat.RetentionAge, cfg.Chat.RetentionInterval, log)
	deleted, err := svc.RunOnce(context.Background())
	if err != nil {
		os.Exit(1)
	}
	log.Info("retention pass finished", "deleted", deleted, "maxAge", cfg.Chat.RetentionAge.String())
}
