package repository

import (
	"context"
	"errors"
	"time"

	"parley/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository defines persistence operations for conversations,
// their memberships and bans.
type ConversationRepository interface {
	// CreateWithParticipants creates the conversation and its membership rows
	// in a single transaction. Nothing is written when any step fails.
	CreateWithParticipants(ctx context.Context, conv *models.Conversation, userIDs []uint) error
	GetByID(ctx context.Context, id uint) (*models.Conversation, error)
	GetUserConversations(ctx context.Context, userID uint) ([]*models.Conversation, error)
	GetGroupConversations(ctx context.Context) ([]*models.Conversation, error)
	GetDirectConversationsForUser(ctx context.Context, userID uint) ([]*models.Conversation, error)
	FindDirectByKey(ctx context.Context, key string) (*models.Conversation, error)

	IsParticipant(ctx context.Context, convID, userID uint) (bool, error)
	IsBanned(ctx context.Context, convID, userID uint) (bool, error)
	BannedUserIDs(ctx context.Context, convID uint, candidates []uint) ([]uint, error)
	ParticipantUserIDs(ctx context.Context, convID uint) ([]uint, error)
	GetParticipantRows(ctx context.Context, userID uint) ([]models.ConversationParticipant, error)

	AddParticipants(ctx context.Context, convID uint, userIDs []uint) error
	RemoveParticipant(ctx context.Context, convID, userID uint) error
	// BanWithDetach records the ban and removes the membership row in a
	// single transaction.
	BanWithDetach(ctx context.Context, ban *models.ConversationBan) error

	UpdateLastRead(ctx context.Context, convID, userID uint, at time.Time) error
	Close(ctx context.Context, convID uint, at time.Time) error
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository returns a new ConversationRepository implementation.
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) CreateWithParticipants(ctx context.Context, conv *models.Conversation, userIDs []uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Participants").Create(conv).Error; err != nil {
			return err
		}
		for _, uid := range userIDs {
			row := models.ConversationParticipant{
				ConversationID: conv.ID,
				UserID:         uid,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Conversation already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Preload("Category").
		Preload("Creator").
		First(&conv, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Conversation not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &conv, nil
}

func (r *conversationRepository) GetUserConversations(ctx context.Context, userID uint) ([]*models.Conversation, error) {
	var conversations []*models.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants cp ON conversations.id = cp.conversation_id").
		Where("cp.user_id = ?", userID).
		Preload("Participants").
		Preload("Category").
		Preload("Creator").
		Order("conversations.updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return conversations, nil
}

func (r *conversationRepository) GetGroupConversations(ctx context.Context) ([]*models.Conversation, error) {
	var conversations []*models.Conversation
	err := r.db.WithContext(ctx).
		Where("conversations.type = ?", models.ConversationTypeGroup).
		Preload("Participants").
		Preload("Category").
		Preload("Creator").
		Order("conversations.updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return conversations, nil
}

func (r *conversationRepository) GetDirectConversationsForUser(ctx context.Context, userID uint) ([]*models.Conversation, error) {
	var conversations []*models.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants cp ON conversations.id = cp.conversation_id").
		Where("cp.user_id = ? AND conversations.type = ?", userID, models.ConversationTypeDirect).
		Preload("Participants").
		Find(&conversations).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return conversations, nil
}

func (r *conversationRepository) FindDirectByKey(ctx context.Context, key string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("direct_key = ?", key).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Conversation not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &conv, nil
}

func (r *conversationRepository) IsParticipant(ctx context.Context, convID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *conversationRepository) IsBanned(ctx context.Context, convID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ConversationBan{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *conversationRepository) BannedUserIDs(ctx context.Context, convID uint, candidates []uint) ([]uint, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.ConversationBan{}).
		Where("conversation_id = ? AND user_id IN ?", convID, candidates).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *conversationRepository) ParticipantUserIDs(ctx context.Context, convID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ?", convID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// GetParticipantRows returns the caller's membership rows across all
// conversations, used to compute unread counts from last_read_at.
func (r *conversationRepository) GetParticipantRows(ctx context.Context, userID uint) ([]models.ConversationParticipant, error) {
	var rows []models.ConversationParticipant
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *conversationRepository) AddParticipants(ctx context.Context, convID uint, userIDs []uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, uid := range userIDs {
			row := models.ConversationParticipant{
				ConversationID: convID,
				UserID:         uid,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *conversationRepository) RemoveParticipant(ctx context.Context, convID, userID uint) error {
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Delete(&models.ConversationParticipant{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *conversationRepository) BanWithDetach(ctx context.Context, ban *models.ConversationBan) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(ban).Error; err != nil {
			return err
		}
		return tx.
			Where("conversation_id = ? AND user_id = ?", ban.ConversationID, ban.UserID).
			Delete(&models.ConversationParticipant{}).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *conversationRepository) UpdateLastRead(ctx context.Context, convID, userID uint, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Update("last_read_at", at).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *conversationRepository) Close(ctx context.Context, convID uint, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", convID).
		Update("closed_at", at).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
