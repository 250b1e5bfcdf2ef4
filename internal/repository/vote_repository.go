package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"filingchat/internal/model"
)

type VoteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

// Upsert inserts the vote or overwrites the direction of an existing one.
func (r *VoteRepository) Upsert(ctx context.Context, vote *model.Vote) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}, {Name: "message_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_upvoted"}),
	}).Create(vote).Error
	if err != nil {
		return fmt.Errorf("upsert vote failed: %w", err)
	}
	return nil
}

func (r *VoteRepository) ListByChatID(ctx context.Context, chatID string) ([]model.Vote, error) {
	var votes []model.Vote
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("list votes failed: %w", err)
	}
	return votes, nil
}
