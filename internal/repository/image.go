package repository

import (
	"context"
	"errors"

	"parley/internal/models"

	"gorm.io/gorm"
)

// ImageRepository defines storage operations for uploaded image metadata.
type ImageRepository interface {
	Create(ctx context.Context, image *models.UploadedImage) error
	GetByID(ctx context.Context, id uint) (*models.UploadedImage, error)
	// ListByUser returns the user's uploads, newest first, optionally
	// filtered to one image type.
	ListByUser(ctx context.Context, userID uint, imageType string, limit, offset int) ([]models.UploadedImage, error)
}

type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository returns a repository implementation for image metadata.
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Create(ctx context.Context, image *models.UploadedImage) error {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *imageRepository) GetByID(ctx context.Context, id uint) (*models.UploadedImage, error) {
	var image models.UploadedImage
	if err := r.db.WithContext(ctx).First(&image, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Image not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &image, nil
}

func (r *imageRepository) ListByUser(ctx context.Context, userID uint, imageType string, limit, offset int) ([]models.UploadedImage, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if imageType != "" {
		q = q.Where("image_type = ?", imageType)
	}

	var images []models.UploadedImage
	err := q.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&images).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return images, nil
}
