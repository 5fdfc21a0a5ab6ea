package main

import (
	"os"

	"chatroom-service/internal/config"
	"chatroom-service/internal/database"
	"chatroom-service/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.New(logger.Config{}).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "migrate"})

	log.Info("starting database migration", "driver", cfg.Database.Driver)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Error("failed to get database instance", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	if err := database.Migrate(db); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}

	log.Info("database migration completed")
}
