package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document is embedded by every stored entity; ids are generated strings.
type Document struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
