package main

import (
	"context"
	"errors"
	"os"

	"chatroom-service/internal/config"
	"chatroom-service/internal/database"
	"chatroom-service/internal/models"
	"chatroom-service/internal/repository"
	"chatroom-service/internal/services"
	"chatroom-service/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.New(logger.Config{}).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "seed"})

	log.Info("starting database seeding")

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		log.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	userService := services.NewUserService(userRepo, services.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpirationTime), log)

	testUsers := []models.RegisterRequest{
		{Username: "admin", Email: "admin@chat.local", Password: "123456", Color: "#EF4444"},
		{Username: "alice", Email: "alice@chat.local", Password: "123456", Color: "#10B981"},
		{Username: "bob", Email: "bob@chat.local", Password: "123456", Color: "#F59E0B"},
		{Username: "charlie", Email: "charlie@chat.local", Password: "123456"},
	}

	var firstID uint
	for i := range testUsers {
		req := testUsers[i]
		resp, err := userService.Register(ctx, &req)
		if err != nil {
			if errors.Is(err, services.ErrUsernameTaken) || errors.Is(err, services.ErrEmailTaken) {
				log.Warn("user already exists", "username", req.Username)
				continue
			}
			log.Error("failed to create user", "username", req.Username, "error", err)
			os.Exit(1)
		}
		log.Info("created user", "username", req.Username, "id", resp.User.ID)
		if firstID == 0 {
			firstID = resp.User.ID
		}
	}

	if firstID != 0 {
		for _, content := range []string{"Welcome to the chat room!", "Be nice and have fun."} {
			if _, err := messageRepo.Create(ctx, firstID, content); err != nil {
				log.Warn("failed to seed message", "error", err)
			}
		}
	}

	log.Info("database seeding completed")
}
