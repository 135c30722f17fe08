package models

import "time"

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID string `gorm:"size:36;index" json:"user_id"`
	User   User   `json:"user,omitempty"`

	Entity   string `gorm:"size:50;not null" json:"entity"` // "project", "schedule", "drawing", "model"
	EntityID string `gorm:"size:36;index" json:"entity_id"`
	Action   string `gorm:"size:50;not null" json:"action"`
	Details  string `gorm:"type:text" json:"details"`
}
