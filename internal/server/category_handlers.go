package server

import (
	"parley/internal/models"
	"parley/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetCategories handles GET /api/categories
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.categoryService.List(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(categories)
}

// GetCategoryBySlug handles GET /api/categories/:slug
func (s *Server) GetCategoryBySlug(c *fiber.Ctx) error {
	slug := c.Params("slug")
	if slug == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid category slug"))
	}

	category, err := s.categoryService.GetBySlug(c.UserContext(), slug)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(category)
}

// CreateCategory handles POST /api/categories (admin only)
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	category, err := s.categoryService.Create(c.UserContext(), service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(category)
}

// UpdateCategory handles PUT /api/categories/:id (admin only)
func (s *Server) UpdateCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	category, err := s.categoryService.Update(c.UserContext(), id, service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(category)
}

// DeleteCategory handles DELETE /api/categories/:id (admin only)
func (s *Server) DeleteCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.categoryService.Delete(c.UserContext(), id); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(fiber.Map{"message": "Category deleted"})
}
