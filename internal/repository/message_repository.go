package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"filingchat/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, message *model.Message) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("create message failed: %w", err)
	}
	return nil
}

// ListByChatID returns the chat's messages in ascending creation order.
func (r *MessageRepository) ListByChatID(ctx context.Context, chatID string) ([]model.Message, error) {
	var messages []model.Message
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Order("created_at ASC").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, nil
}
