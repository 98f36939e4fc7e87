package models

import "time"

// MaxMessageBodyLen bounds the length of a message body.
const MaxMessageBodyLen = 65535

// Message is a single chat message. Messages are immutable once created;
// there are no update or delete paths.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	User           *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}
