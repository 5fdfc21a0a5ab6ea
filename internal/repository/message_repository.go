package repository

import (
	"context"
	"fmt"
	"time"

	"chatroom-service/internal/models"

	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create persists a message and returns it with its author loaded. Both
// steps share one transaction, so a failed author load leaves no row behind.
func (r *MessageRepository) Create(ctx context.Context, authorID uint, content string) (*models.Message, error) {
	msg := models.Message{
		UserID:  authorID,
		Content: content,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}
		if err := tx.First(&msg.User, authorID).Error; err != nil {
			return fmt.Errorf("failed to load message author: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindRecent returns up to limit messages, most recent first.
func (r *MessageRepository) FindRecent(ctx context.Context, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find recent messages: %w", err)
	}
	return messages, nil
}

// DeleteOlderThan removes messages created before cutoff and reports how many went.
func (r *MessageRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.Message{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old messages: %w", result.Error)
	}
	return result.RowsAffected, nil
}
