package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"filingchat/internal/model"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(ctx context.Context, chat *model.Chat) error {
	if err := r.db.WithContext(ctx).Create(chat).Error; err != nil {
		return fmt.Errorf("create chat failed: %w", err)
	}
	return nil
}

func (r *ChatRepository) GetByID(ctx context.Context, id string) (*model.Chat, error) {
	var chat model.Chat
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&chat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat failed: %w", err)
	}
	return &chat, nil
}

// GetByReportAndUser returns the oldest chat for the pair, if any.
func (r *ChatRepository) GetByReportAndUser(ctx context.Context, reportID, userID string) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.WithContext(ctx).
		Where("report_id = ? AND user_id = ?", reportID, userID).
		Order("created_at ASC").
		First(&chat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat by report failed: %w", err)
	}
	return &chat, nil
}

func (r *ChatRepository) ListByUserID(ctx context.Context, userID string) ([]model.Chat, error) {
	var chats []model.Chat
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("list chats failed: %w", err)
	}
	return chats, nil
}

// DeleteByID removes votes, then messages, then the chat row. The three
// statements are not wrapped in a transaction; a failure part way leaves the
// earlier deletes applied.
func (r *ChatRepository) DeleteByID(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("chat_id = ?", id).Delete(&model.Vote{}).Error; err != nil {
		return fmt.Errorf("delete chat votes failed: %w", err)
	}
	if err := db.Where("chat_id = ?", id).Delete(&model.Message{}).Error; err != nil {
		return fmt.Errorf("delete chat messages failed: %w", err)
	}
	if err := db.Where("id = ?", id).Delete(&model.Chat{}).Error; err != nil {
		return fmt.Errorf("delete chat failed: %w", err)
	}
	return nil
}
