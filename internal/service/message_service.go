package service

import (
	"context"
	"log/slog"
	"strings"

	"parley/internal/middleware"
	"parley/internal/models"
	"parley/internal/observability"
	"parley/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// Publisher fans a stored message out to real-time subscribers.
type Publisher interface {
	PublishMessage(ctx context.Context, conv *models.Conversation, msg *models.Message) error
}

// MessageService provides message posting and history logic.
type MessageService struct {
	convRepo  repository.ConversationRepository
	msgRepo   repository.MessageRepository
	userRepo  repository.UserRepository
	publisher Publisher
}

// NewMessageService returns a new MessageService. publisher may be nil,
// in which case messages are stored without fan-out.
func NewMessageService(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	publisher Publisher,
) *MessageService {
	return &MessageService{
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		userRepo:  userRepo,
		publisher: publisher,
	}
}

// PostMessageInput is the input for posting a message.
type PostMessageInput struct {
	ConversationID uint
	UserID         uint
	Body           string
}

// List returns a page of messages, newest first, plus the total count.
// Non-participants get a not-found error.
func (s *MessageService) List(ctx context.Context, convID, userID uint, limit, offset int) ([]*models.Message, int64, error) {
	conv, err := s.convRepo.GetByID(ctx, convID)
	if err != nil {
		return nil, 0, err
	}
	if !conv.HasParticipant(userID) {
		return nil, 0, models.NewNotFoundError("Conversation not found")
	}

	messages, err := s.msgRepo.List(ctx, convID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.msgRepo.Count(ctx, convID)
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// Post stores a message and publishes it for real-time delivery. The
// publish is fire-and-forget: a failure is logged and never undoes the
// stored message.
func (s *MessageService) Post(ctx context.Context, in PostMessageInput) (_ *models.Message, err error) {
	ctx, span := observability.StartSpan(ctx, "MessageService.Post",
		attribute.Int("conversation.id", int(in.ConversationID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, models.NewValidationError("Message body is required")
	}
	if len(body) > models.MaxMessageBodyLen {
		return nil, models.NewValidationError("Message body is too long")
	}

	conv, err := s.convRepo.GetByID(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(in.UserID) {
		return nil, models.NewNotFoundError("Conversation not found")
	}
	if conv.IsClosed() {
		return nil, models.NewConflictError("Conversation is closed")
	}

	message := &models.Message{
		ConversationID: in.ConversationID,
		UserID:         in.UserID,
		Body:           body,
	}
	if err := s.msgRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	if sender, err := s.userRepo.GetByID(ctx, in.UserID); err == nil {
		message.User = sender
	}

	if s.publisher != nil {
		if err := s.publisher.PublishMessage(ctx, conv, message); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish message",
				slog.Any("conversation_id", conv.ID),
				slog.Any("message_id", message.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return message, nil
}
