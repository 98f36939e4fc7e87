package server

import (
	"io"

	"parley/internal/models"
	"parley/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadImage handles POST /api/images
func (s *Server) UploadImage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	file, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
	}

	uploaded, err := s.imageService.Upload(c.UserContext(), service.UploadImageInput{
		UserID:    userID,
		Filename:  file.Filename,
		ImageType: c.FormValue("type"),
		Content:   content,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(uploaded)
}

// GetImage handles GET /api/images/:id
func (s *Server) GetImage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	img, err := s.imageService.Get(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(img)
}

// GetMyImages handles GET /api/images/me. An optional ?type= query
// narrows the list to memes or finds.
func (s *Server) GetMyImages(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	page := parsePagination(c, 50)

	images, err := s.imageService.ListForUser(c.UserContext(), userID, c.Query("type"), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(images)
}
