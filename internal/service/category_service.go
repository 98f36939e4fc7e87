package service

import (
	"context"
	"strings"

	"parley/internal/models"
	"parley/internal/repository"
	"parley/internal/validation"
)

// CategoryService provides conversation category management.
type CategoryService struct {
	categoryRepo repository.CategoryRepository
}

// NewCategoryService returns a new CategoryService.
func NewCategoryService(categoryRepo repository.CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

// CategoryInput is the input for creating or updating a category.
type CategoryInput struct {
	Name        string
	Description string
}

const maxCategoryNameLen = 255

// Create creates a new category, deriving its slug from the name.
func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*models.ConversationCategory, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("Category name is required")
	}
	if len(name) > maxCategoryNameLen {
		return nil, models.NewValidationError("Category name is too long")
	}
	if validation.Slugify(name) == "" {
		return nil, models.NewValidationError("Category name must contain letters or digits")
	}

	category := &models.ConversationCategory{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// List returns all categories sorted by name.
func (s *CategoryService) List(ctx context.Context) ([]models.ConversationCategory, error) {
	return s.categoryRepo.List(ctx)
}

// Get returns a single category by ID.
func (s *CategoryService) Get(ctx context.Context, id uint) (*models.ConversationCategory, error) {
	return s.categoryRepo.GetByID(ctx, id)
}

// GetBySlug returns a single category by slug.
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*models.ConversationCategory, error) {
	return s.categoryRepo.GetBySlug(ctx, slug)
}

// Update renames a category. The slug follows the new name.
func (s *CategoryService) Update(ctx context.Context, id uint, in CategoryInput) (*models.ConversationCategory, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("Category name is required")
	}
	if len(name) > maxCategoryNameLen {
		return nil, models.NewValidationError("Category name is too long")
	}
	slug := validation.Slugify(name)
	if slug == "" {
		return nil, models.NewValidationError("Category name must contain letters or digits")
	}

	category.Name = name
	category.Slug = slug
	category.Description = strings.TrimSpace(in.Description)
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// Delete removes a category that no conversation references.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	count, err := s.categoryRepo.CountConversations(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return models.NewConflictError("Category is in use by existing conversations")
	}
	return s.categoryRepo.Delete(ctx, id)
}
