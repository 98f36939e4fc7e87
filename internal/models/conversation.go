package models

import (
	"fmt"
	"time"
)

// ConversationType distinguishes two-party direct chats from group rooms.
type ConversationType string

const (
	// ConversationTypeDirect is a two-party conversation with no creator.
	ConversationTypeDirect ConversationType = "direct"
	// ConversationTypeGroup is a room with a creator and a required category.
	ConversationTypeGroup ConversationType = "group"
)

// Conversation represents a direct or group chat. It owns its memberships,
// messages and bans; they are removed with it.
//
// Direct conversations have exactly two participants, no creator and no
// category. Group conversations have exactly one creator and a category.
// A non-nil ClosedAt means the conversation is closed, which is terminal.
type Conversation struct {
	ID          uint                  `gorm:"primaryKey" json:"id"`
	Type        ConversationType      `gorm:"type:varchar(10);not null;index" json:"type"`
	CategoryID  *uint                 `gorm:"index" json:"category_id,omitempty"`
	Category    *ConversationCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Name        *string               `gorm:"size:255" json:"name"`
	CreatedByID *uint                 `json:"created_by_id,omitempty"`
	Creator     *User                 `gorm:"foreignKey:CreatedByID" json:"creator,omitempty"`
	ClosedAt    *time.Time            `json:"closed_at"`
	// DirectKey is the normalized "minUserID:maxUserID" pair for direct
	// conversations. The unique index backstops the scan-then-create dedup
	// against two concurrent creates for the same pair.
	DirectKey *string   `gorm:"size:64;uniqueIndex" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Participants []User            `gorm:"many2many:conversation_participants;constraint:OnDelete:CASCADE" json:"participants,omitempty"`
	Messages     []Message         `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
	Bans         []ConversationBan `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsClosed reports whether the conversation has been closed.
func (c *Conversation) IsClosed() bool {
	return c.ClosedAt != nil
}

// IsCreator reports whether userID created this conversation.
// Always false for direct conversations, which have no creator.
func (c *Conversation) IsCreator(userID uint) bool {
	return c.CreatedByID != nil && *c.CreatedByID == userID
}

// HasParticipant reports whether userID is among the loaded participants.
func (c *Conversation) HasParticipant(userID uint) bool {
	for _, p := range c.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// DirectKeyFor returns the normalized pair key for a direct conversation
// between the two given users.
func DirectKeyFor(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// ConversationParticipant is the membership row granting a user visibility
// and write access to a conversation. LastReadAt drives unread counts; nil
// means the user has never read the conversation.
type ConversationParticipant struct {
	ConversationID uint       `gorm:"primaryKey;autoIncrement:false" json:"conversation_id"`
	UserID         uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	LastReadAt     *time.Time `json:"last_read_at"`
	CreatedAt      time.Time  `json:"created_at"`
}
