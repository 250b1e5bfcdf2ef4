package model

import "time"

type StreamTelemetry struct {
	ID                string    `gorm:"type:varchar(26);primaryKey" json:"id"`
	FunctionID        string    `gorm:"size:64;not null" json:"functionId"`
	ChatID            string    `gorm:"type:varchar(36);not null;index" json:"chatId"`
	UserID            string    `gorm:"type:varchar(36);not null;index" json:"userId"`
	ModelID           string    `gorm:"size:64;not null" json:"modelId"`
	FinishReason      string    `gorm:"size:32" json:"finishReason"`
	Steps             int       `json:"steps"`
	PromptTokens      int       `json:"promptTokens"`
	CompletionTokens  int       `json:"completionTokens"`
	PersistedMessages int       `json:"persistedMessages"`
	DroppedMessages   int       `json:"droppedMessages"`
	DurationMs        int64     `json:"durationMs"`
	Failed            bool      `json:"failed"`
	CreatedAt         time.Time `json:"createdAt"`
}
