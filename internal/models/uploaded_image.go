package models

import "time"

// UploadedImage is the metadata record for a file kept in object storage.
// Only the key/URL returned by the storage collaborator is persisted here.
type UploadedImage struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	User         *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	OriginalName string    `gorm:"size:255" json:"original_name"`
	ImageType    string    `gorm:"size:50;index" json:"image_type"`
	StorageKey   string    `gorm:"size:512;not null" json:"storage_key"`
	URL          string    `gorm:"size:1024;not null" json:"url"`
	MimeType     string    `gorm:"size:100" json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
