package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"chatroom-service/internal/adapters/kafka"
	"chatroom-service/internal/chat"
	"chatroom-service/internal/config"
	"chatroom-service/pkg/logger"
)

// tail prints the chat message stream published to Kafka.
func main() {
	group := flag.String("group", "", "consumer group id; empty reads from the newest offset without committing")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.New(logger.Config{}).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "tail"})

	if len(cfg.Kafka.Brokers) == 0 {
		log.Error("KAFKA_BROKERS is not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("tailing topic", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	err = kafka.Tail(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, *group, func(rec kafka.Record) error {
		var view chat.MessageView
		if err := json.Unmarshal(rec.Value, &view); err != nil {
			log.Warn("skipping undecodable record", "offset", rec.Offset, "error", err)
			return nil
		}
		log.Info("message",
			"messageID", view.ID,
			"text", view.Message,
			"username", view.User.Username,
			"timestamp", view.Timestamp,
			"partition", rec.Partition,
			"offset", rec.Offset,
		)
		return nil
	})
	if err != nil {
		log.Error("tail stopped", "error", err)
		os.Exit(1)
	}
}
