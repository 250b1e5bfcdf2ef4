package repository

import (
	"fmt"

	"gorm.io/gorm"

	"filingchat/internal/model"
)

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Chat{},
		&model.Message{},
		&model.Vote{},
		&model.Report{},
		&model.StreamTelemetry{},
	); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}
