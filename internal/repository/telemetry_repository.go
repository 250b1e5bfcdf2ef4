package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"filingchat/internal/model"
)

type TelemetryRepository struct {
	db *gorm.DB
}

func NewTelemetryRepository(db *gorm.DB) *TelemetryRepository {
	return &TelemetryRepository{db: db}
}

func (r *TelemetryRepository) Create(ctx context.Context, t *model.StreamTelemetry) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("create stream telemetry failed: %w", err)
	}
	return nil
}

func (r *TelemetryRepository) ListByChatID(ctx context.Context, chatID string) ([]model.StreamTelemetry, error) {
	var items []model.StreamTelemetry
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list stream telemetry failed: %w", err)
	}
	return items, nil
}
