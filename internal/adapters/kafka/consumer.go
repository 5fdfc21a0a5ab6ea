package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// Record is one event read back from the topic.
type Record struct {
	Key       string
	Value     []byte
	Partition int
	Offset    int64
}

// Tail follows a topic from its newest offset and hands every record to fn
// until ctx is cancelled or fn returns an error.
func Tail(ctx context.Context, brokers []string, topic, groupID string, fn func(Record) error) error {
	cfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	}
	if groupID != "" {
		cfg.GroupID = groupID
	} else {
		cfg.StartOffset = kafka.LastOffset
	}

	reader := kafka.NewReader(cfg)
	defer reader.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("failed to read from %s: %w", topic, err)
		}
		if err := fn(Record{
			Key:       string(msg.Key),
			Value:     msg.Value,
			Partition: msg.Partition,
			Offset:    msg.Offset,
		}); err != nil {
			return err
		}
	}
}
