package models

import "time"

// ConversationBan bars a user from being re-invited to a conversation.
// The ban does not remove messages the user already posted.
type ConversationBan struct {
	ConversationID uint      `gorm:"primaryKey;autoIncrement:false" json:"conversation_id"`
	UserID         uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	BannedByUserID uint      `gorm:"not null;index" json:"banned_by_user_id"`
	CreatedAt      time.Time `json:"created_at"`

	User         *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BannedByUser *User `gorm:"foreignKey:BannedByUserID" json:"banned_by_user,omitempty"`
}

// TableName specifies the table name for GORM.
func (ConversationBan) TableName() string {
	return "conversation_bans"
}
