package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatroom-service/internal/chat"
	"chatroom-service/internal/models"
	"chatroom-service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	err error
}

func (s *stubStore) Create(_ context.Context, authorID uint, content string) (*models.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Message{
		ID: 42, UserID: authorID, Content: content, CreatedAt: time.Now(),
		User: models.User{ID: authorID, Username: "alice", Color: "#FF0000"},
	}, nil
}

func (s *stubStore) FindRecent(context.Context, int) ([]models.Message, error) {
	return nil, nil
}

type recordingPublisher struct {
	keys   []uint
	events []interface{}
	err    error
}

func (p *recordingPublisher) Publish(userID uint, event interface{}) error {
	p.keys = append(p.keys, userID)
	p.events = append(p.events, event)
	return p.err
}

func TestPublishingStorePublishesMessageView(t *testing.T) {
	pub := &recordingPublisher{}
	store := NewPublishingMessageStore(&stubStore{}, pub, logger.Nop())

	msg, err := store.Create(context.Background(), 1, "hello")
	require.NoError(t, err)
	assert.Equal(t, uint(42), msg.ID)

	require.Len(t, pub.events, 1)
	assert.Equal(t, []uint{1}, pub.keys)
	view := pub.events[0].(chat.MessageView)
	assert.Equal(t, "hello", view.Message)
	assert.Equal(t, "alice", view.User.Username)
}

func TestPublishingStoreIgnoresPublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	store := NewPublishingMessageStore(&stubStore{}, pub, logger.Nop())

	_, err := store.Create(context.Background(), 1, "hello")
	assert.NoError(t, err)
}

func TestPublishingStoreSkipsFailedWrites(t *testing.T) {
	pub := &recordingPublisher{}
	store := NewPublishingMessageStore(&stubStore{err: errors.New("insert failed")}, pub, logger.Nop())

	_, err := store.Create(context.Background(), 1, "hello")
	assert.Error(t, err)
	assert.Empty(t, pub.events)
}
