package model

import "time"

// Report caches filing metadata and the converted file location. ID is the
// filing id used as a chat's report id.
type Report struct {
	ID          string    `gorm:"size:128;primaryKey" json:"id"`
	Ticker      string    `gorm:"size:32" json:"ticker"`
	CompanyName string    `gorm:"size:256" json:"companyName"`
	FormType    string    `gorm:"size:32" json:"formType"`
	AccessionNo string    `gorm:"size:64" json:"accessionNo"`
	FiledAt     string    `gorm:"size:64" json:"filedAt"`
	FilingURL   string    `gorm:"size:1024;not null" json:"filingUrl"`
	FileURL     string    `gorm:"size:1024" json:"fileUrl"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
