package model

import "time"

type User struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name         string    `gorm:"size:128" json:"name"`
	Email        string    `gorm:"size:128;not null;uniqueIndex" json:"email"`
	Image        string    `gorm:"size:512" json:"image,omitempty"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
