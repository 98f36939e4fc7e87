package models

import (
	"time"

	"gorm.io/gorm"

	"parley/internal/validation"
)

// ConversationCategory is the tagging taxonomy for group conversations.
type ConversationCategory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Slug        string    `gorm:"size:255;not null;uniqueIndex" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (ConversationCategory) TableName() string {
	return "conversation_categories"
}

// BeforeCreate derives the slug from the name when none was provided.
func (c *ConversationCategory) BeforeCreate(*gorm.DB) error {
	if c.Slug == "" && c.Name != "" {
		c.Slug = validation.Slugify(c.Name)
	}
	return nil
}
