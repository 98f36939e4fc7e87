package server

import (
	"parley/internal/models"
	"parley/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMessages handles GET /api/conversations/:id/messages
func (s *Server) GetMessages(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	page := parsePagination(c, 50)
	messages, total, err := s.msgService.List(ctx, convID, userID, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(fiber.Map{
		"messages": messages,
		"total":    total,
		"limit":    page.Limit,
		"offset":   page.Offset,
	})
}

// SendMessage handles POST /api/conversations/:id/messages
func (s *Server) SendMessage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Body string `json:"body"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	message, err := s.msgService.Post(ctx, service.PostMessageInput{
		ConversationID: convID,
		UserID:         userID,
		Body:           req.Body,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(message)
}
