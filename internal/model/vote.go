package model

type Vote struct {
	ChatID    string `gorm:"type:varchar(36);primaryKey" json:"chatId"`
	MessageID string `gorm:"type:varchar(36);primaryKey" json:"messageId"`
	IsUpvoted bool   `gorm:"not null" json:"isUpvoted"`
}
