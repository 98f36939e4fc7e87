package repository

import (
	"context"
	"time"

	"parley/internal/models"

	"gorm.io/gorm"
)

// MessageRepository defines persistence operations for chat messages.
// Messages are append-only; there are no update or delete operations.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	List(ctx context.Context, convID uint, limit, offset int) ([]*models.Message, error)
	Count(ctx context.Context, convID uint) (int64, error)
	// UnreadCount counts messages posted by other users after since.
	// A nil since means every message from others is unread.
	UnreadCount(ctx context.Context, convID, readerID uint, since *time.Time) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository returns a new MessageRepository implementation.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		// A new message bumps the conversation so it sorts to the top of lists.
		return tx.Model(&models.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Update("updated_at", msg.CreatedAt).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// List returns messages newest-first, which matches how clients page
// backwards through history.
func (r *messageRepository) List(ctx context.Context, convID uint, limit, offset int) ([]*models.Message, error) {
	var messages []*models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Preload("User").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return messages, nil
}

func (r *messageRepository) Count(ctx context.Context, convID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ?", convID).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *messageRepository) UnreadCount(ctx context.Context, convID, readerID uint, since *time.Time) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND user_id <> ?", convID, readerID)
	if since != nil {
		q = q.Where("created_at > ?", *since)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
