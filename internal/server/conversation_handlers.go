package server

import (
	"parley/internal/models"
	"parley/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateConversation handles POST /api/conversations
func (s *Server) CreateConversation(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	var req struct {
		Type           string `json:"type"`
		Name           string `json:"name,omitempty"`
		CategoryID     uint   `json:"category_id,omitempty"`
		ParticipantIDs []uint `json:"participant_ids"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	conv, created, err := s.convService.Create(ctx, service.CreateConversationInput{
		UserID:         userID,
		Type:           models.ConversationType(req.Type),
		Name:           req.Name,
		CategoryID:     req.CategoryID,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	// An existing direct conversation is returned rather than duplicated.
	status := fiber.StatusCreated
	if !created {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(conv)
}

// GetConversations handles GET /api/conversations
func (s *Server) GetConversations(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	summaries, err := s.convService.List(ctx, userID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(summaries)
}

// GetConversationsGrouped handles GET /api/conversations/grouped
func (s *Server) GetConversationsGrouped(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	groups, err := s.convService.ListGroupedByCategory(ctx, userID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(groups)
}

// GetConversation handles GET /api/conversations/:id
func (s *Server) GetConversation(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	summary, err := s.convService.Get(ctx, convID, userID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(summary)
}

// MarkConversationRead handles POST /api/conversations/:id/read
func (s *Server) MarkConversationRead(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.convService.MarkRead(ctx, convID, userID); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	if s.notifier != nil {
		if pubErr := s.notifier.PublishRead(ctx, convID, userID); pubErr != nil {
			// Read receipts are best effort.
			_ = pubErr
		}
	}

	return c.JSON(fiber.Map{"message": "Conversation marked as read"})
}

// CloseConversation handles POST /api/conversations/:id/close
func (s *Server) CloseConversation(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	conv, err := s.convService.Close(ctx, convID, userID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	if s.notifier != nil {
		_ = s.notifier.PublishConversationClosed(ctx, convID)
	}

	return c.JSON(conv)
}

// InviteParticipants handles POST /api/conversations/:id/participants
func (s *Server) InviteParticipants(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		UserIDs []uint `json:"user_ids"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.convService.Invite(ctx, convID, userID, req.UserIDs)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(result)
}

// RemoveParticipant handles DELETE /api/conversations/:id/participants/:userId
func (s *Server) RemoveParticipant(c *fiber.Ctx) error {
	ctx := c.UserContext()
	actorID := c.Locals("userID").(uint)
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if err := s.convService.Remove(ctx, convID, actorID, targetID); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(fiber.Map{"message": "Participant removed"})
}

// BanParticipant handles POST /api/conversations/:id/bans
func (s *Server) BanParticipant(c *fiber.Ctx) error {
	ctx := c.UserContext()
	actorID := c.Locals("userID").(uint)
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		UserID uint `json:"user_id"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.UserID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("user_id is required"))
	}

	if err := s.convService.Ban(ctx, convID, actorID, req.UserID); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(fiber.Map{"message": "User banned from conversation"})
}
