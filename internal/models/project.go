package models

import "time"

type Project struct {
	Document
	OwnerID string `gorm:"size:36;index;not null" json:"owner_id"`

	Name         string     `gorm:"size:255;not null" json:"name"`
	Location     string     `gorm:"size:255" json:"location,omitempty"`
	Description  string     `gorm:"type:text" json:"description,omitempty"`
	PhotoURL     string     `gorm:"size:512" json:"photo_url,omitempty"`
	ThumbnailURL string     `gorm:"size:512" json:"thumbnail_url,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
}
