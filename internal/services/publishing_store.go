package services

import (
	"context"

	"chatroom-service/internal/chat"
	"chatroom-service/internal/models"
	"chatroom-service/pkg/logger"
)

type EventPublisher interface {
	Publish(userID uint, event interface{}) error
}

// PublishingMessageStore forwards every persisted message to an event stream.
// Publishing is best effort and never fails the write.
type PublishingMessageStore struct {
	chat.MessageStore
	publisher EventPublisher
	log       *logger.Logger
}

func NewPublishingMessageStore(store chat.MessageStore, publisher EventPublisher, log *logger.Logger) *PublishingMessageStore {
	return &PublishingMessageStore{
		MessageStore: store,
		publisher:    publisher,
		log:          log,
	}
}

func (s *PublishingMessageStore) Create(ctx context.Context, authorID uint, content string) (*models.Message, error) {
	msg, err := s.MessageStore.Create(ctx, authorID, content)
	if err != nil {
		return nil, err
	}

	view := chat.NewMessageView(msg, chat.UserView{ID: authorID})
	if err := s.publisher.Publish(authorID, view); err != nil {
		s.log.Warn("failed to publish message event", "messageID", msg.ID, "error", err)
	}
	return msg, nil
}
