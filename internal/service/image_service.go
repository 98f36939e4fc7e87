package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"net/http"
	"path/filepath"
	"strings"

	"parley/internal/config"
	"parley/internal/models"
	"parley/internal/repository"
	"parley/internal/storage"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	// ImageTypeMeme and ImageTypeFind are the two upload categories;
	// each gets its own folder in object storage.
	ImageTypeMeme = "meme"
	ImageTypeFind = "find"

	DefaultImageMaxUploadSizeMB = 5
)

var extByMime = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageService validates uploads, hands the bytes to object storage and
// records the resulting metadata.
type ImageService struct {
	repo               repository.ImageRepository
	store              storage.ObjectStorage
	maxUploadSizeBytes int64
}

// NewImageService returns a new ImageService.
func NewImageService(repo repository.ImageRepository, store storage.ObjectStorage, cfg *config.Config) *ImageService {
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	if cfg != nil && cfg.ImageMaxUploadSizeMB > 0 {
		maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
	}
	return &ImageService{
		repo:               repo,
		store:              store,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// UploadImageInput is the input for uploading an image.
type UploadImageInput struct {
	UserID    uint
	Filename  string
	ImageType string
	Content   []byte
}

// Upload validates the image, stores the bytes and persists the metadata.
func (s *ImageService) Upload(ctx context.Context, in UploadImageInput) (*models.UploadedImage, error) {
	if in.UserID == 0 {
		return nil, models.NewValidationError("Invalid user")
	}
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	imageType := in.ImageType
	if imageType == "" {
		imageType = ImageTypeFind
	}
	if imageType != ImageTypeMeme && imageType != ImageTypeFind {
		return nil, models.NewValidationError("Image type must be 'meme' or 'find'")
	}

	mimeType := http.DetectContentType(in.Content)
	ext, ok := extByMime[mimeType]
	if !ok {
		return nil, models.NewValidationError("Invalid image type")
	}

	// Decode the header to make sure the bytes really are an image.
	if _, _, err := image.DecodeConfig(bytes.NewReader(in.Content)); err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}

	key := storageKey(imageType, ext)
	url, err := s.store.Put(ctx, key, in.Content, mimeType)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	uploaded := &models.UploadedImage{
		UserID:       in.UserID,
		OriginalName: sanitizeFilename(in.Filename),
		ImageType:    imageType,
		StorageKey:   key,
		URL:          url,
		MimeType:     mimeType,
		SizeBytes:    int64(len(in.Content)),
	}
	if err := s.repo.Create(ctx, uploaded); err != nil {
		// The blob is orphaned if this fails; best effort cleanup.
		_ = s.store.Delete(ctx, key)
		return nil, err
	}
	return uploaded, nil
}

// Get returns image metadata by ID.
func (s *ImageService) Get(ctx context.Context, id uint) (*models.UploadedImage, error) {
	return s.repo.GetByID(ctx, id)
}

// ListForUser returns the user's uploads, newest first. A non-empty
// imageType narrows the list to that upload category.
func (s *ImageService) ListForUser(ctx context.Context, userID uint, imageType string, limit, offset int) ([]models.UploadedImage, error) {
	if imageType != "" && imageType != ImageTypeMeme && imageType != ImageTypeFind {
		return nil, models.NewValidationError("Image type must be 'meme' or 'find'")
	}
	return s.repo.ListByUser(ctx, userID, imageType, limit, offset)
}

// storageKey builds the object key: memes go under memes/, everything
// else under finds/.
func storageKey(imageType, ext string) string {
	folder := "finds"
	if imageType == ImageTypeMeme {
		folder = "memes"
	}
	return folder + "/" + uuid.NewString() + ext
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}
