package main

// @title           Chat Room Service API
// @version         1.0
// @description     Registration, login and a single WebSocket chat room
// @host            localhost:3001
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatroom-service/internal/adapters/kafka"
	"chatroom-service/internal/api/handlers"
	"chatroom-service/internal/api/middleware"
	"chatroom-service/internal/api/routes"
	"chatroom-service/internal/chat"
	"chatroom-service/internal/config"
	"chatroom-service/internal/database"
	"chatroom-service/internal/repository"
	"chatroom-service/internal/services"
	"chatroom-service/internal/ws"
	"chatroom-service/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.New(logger.Config{}).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "chatroom-service"})
	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// drainTimeout bounds how long shutdown waits for sockets to report their
// disconnects after they have been closed.
const drainTimeout = 5 * time.Second

func run(cfg *config.Config, log *logger.Logger) error {
	log.Info("starting chat server", "driver", cfg.Database.Driver)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	tokens := services.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpirationTime)
	userService := services.NewUserService(userRepo, tokens, log)

	// Redis is optional. Without it there is no presence mirror and no HTTP rate limiting.
	var (
		rateLimiter middleware.RateLimiter
		presence    chat.PresenceMirror
		online      handlers.OnlineUsersReader
	)
	if cfg.Redis.URI != "" {
		redisClient, err := database.NewRedisConnection(cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisClient.Close()

		redisService := services.NewRedisService(redisClient, log)
		rateLimiter = redisService
		presence = redisService
		online = redisService
	} else {
		log.Warn("REDIS_URL not set, presence mirror and rate limiting disabled")
	}

	var messages chat.MessageStore = messageRepo
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewAsyncProducer(cfg.Kafka.Brokers)
		if err != nil {
			return fmt.Errorf("failed to connect to Kafka: %w", err)
		}
		kafkaLog := log.With("component", "kafka")
		publisher := kafka.NewPublisher(producer, cfg.Kafka.Topic, func(err error) {
			kafkaLog.Warn("message event not delivered", "error", err)
		})
		defer publisher.Close()

		messages = services.NewPublishingMessageStore(messageRepo, publisher, log)
		log.Info("publishing messages to kafka", "topic", cfg.Kafka.Topic)
	}

	coordinator := chat.NewCoordinator(tokens, userRepo, messages, chat.Options{
		RecentLimit: cfg.Chat.RecentLimit,
		Policy: chat.MessagePolicy{
			AllowEmpty: cfg.Chat.AllowEmptyMessages,
			MaxLength:  cfg.Chat.MaxMessageLength,
		},
		Presence: presence,
		Logger:   log.With("component", "chat"),
	})
	defer coordinator.Close()

	wsServer := ws.NewServer(coordinator, cfg.WebSocket.AllowedOrigins, ws.Settings{
		WriteWait:       cfg.WebSocket.WriteWait,
		PongWait:        cfg.WebSocket.PongWait,
		PingPeriod:      cfg.WebSocket.PingPeriod,
		MaxMessageSize:  cfg.WebSocket.MaxMessageSize,
		SendBuffer:      cfg.WebSocket.SendBuffer,
		EventsPerSecond: cfg.WebSocket.EventsPerSecond,
		EventBurst:      cfg.WebSocket.EventBurst,
	}, log.With("component", "ws"))

	router := routes.NewRouter(routes.Dependencies{
		AuthHandler:    handlers.NewAuthHandler(userService, log),
		WSHandler:      handlers.NewWSHandler(wsServer),
		HealthHandler:  handlers.NewHealthHandler(coordinator, online),
		Tokens:         tokens,
		RateLimiter:    rateLimiter,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
		Logger:         log.With("component", "http"),
	})
	router.SetupRoutes()

	retentionCtx, stopRetention := context.WithCancel(context.Background())
	defer stopRetention()
	retention := services.NewRetentionService(messageRepo, cfg.Chat.RetentionAge, cfg.Chat.RetentionInterval, log.With("component", "retention"))
	go retention.Run(retentionCtx)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("server failed to start: %w", err)
	}

	log.Info("server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stopRetention()
	coordinator.Shutdown()

	// Hijacked sockets are invisible to server.Shutdown; wait for their pumps
	// to report the disconnects.
	drainCtx, cancelDrain := context.WithTimeout(ctx, drainTimeout)
	if err := coordinator.WaitForDrain(drainCtx); err != nil {
		log.Warn("connections still open at shutdown", "count", coordinator.ConnectionCount())
	}
	cancelDrain()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
	return nil
}
