package repository

import (
	"context"
	"errors"

	"parley/internal/cache"
	"parley/internal/models"

	"gorm.io/gorm"
)

// CategoryRepository defines persistence operations for conversation categories.
type CategoryRepository interface {
	Create(ctx context.Context, category *models.ConversationCategory) error
	GetByID(ctx context.Context, id uint) (*models.ConversationCategory, error)
	GetBySlug(ctx context.Context, slug string) (*models.ConversationCategory, error)
	List(ctx context.Context) ([]models.ConversationCategory, error)
	Update(ctx context.Context, category *models.ConversationCategory) error
	Delete(ctx context.Context, id uint) error
	CountConversations(ctx context.Context, categoryID uint) (int64, error)
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository returns a new CategoryRepository implementation.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *models.ConversationCategory) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A category with that name already exists")
		}
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.CategoryListKey)
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*models.ConversationCategory, error) {
	var category models.ConversationCategory
	key := cache.CategoryKey(id)

	err := cache.Aside(ctx, key, &category, cache.CategoryTTL, func() error {
		if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Category not found")
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (*models.ConversationCategory, error) {
	var category models.ConversationCategory
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Category not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]models.ConversationCategory, error) {
	var categories []models.ConversationCategory

	err := cache.Aside(ctx, cache.CategoryListKey, &categories, cache.CategoryListTTL, func() error {
		if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) Update(ctx context.Context, category *models.ConversationCategory) error {
	if err := r.db.WithContext(ctx).Save(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A category with that name already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateCategory(ctx, category.ID)
	return nil
}

func (r *categoryRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.ConversationCategory{}, id)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Category not found")
	}
	cache.InvalidateCategory(ctx, id)
	return nil
}

func (r *categoryRepository) CountConversations(ctx context.Context, categoryID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
