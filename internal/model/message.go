package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Message content holds the JSON encoded content parts.
type Message struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	ChatID    string         `gorm:"type:varchar(36);not null;index" json:"chatId"`
	Role      string         `gorm:"size:16;not null" json:"role"`
	Content   datatypes.JSON `gorm:"not null" json:"content"`
	CreatedAt time.Time      `gorm:"not null;index" json:"createdAt"`
}
