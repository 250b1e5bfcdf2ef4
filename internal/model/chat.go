package model

import "time"

// Chat is one conversation thread owned by a user and tied to a report.
// Uniqueness of (ReportID, UserID) is not enforced by the schema.
type Chat struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ReportID  string    `gorm:"size:128;not null;index:idx_chat_report_user" json:"reportId"`
	UserID    string    `gorm:"type:varchar(36);not null;index:idx_chat_report_user;index" json:"userId"`
	Title     string    `gorm:"size:256;not null" json:"title"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}
