package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/slidereel/slidereel-backend/pkg/enums"
)

// Artifact captures metadata for one published presentation asset. At most one
// non-superseded row exists per (presentation, slide, kind); a forced republish
// deletes the old row before creating its replacement.
type Artifact struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PresentationID uuid.UUID          `gorm:"column:presentation_id;type:uuid;not null;index"`
	SlideID        *uuid.UUID         `gorm:"column:slide_id;type:uuid;index"`
	Kind           enums.ArtifactKind `gorm:"column:kind;not null"`
	Bucket         string             `gorm:"column:bucket;not null"`
	ObjectKey      string             `gorm:"column:object_key;not null;unique"`
	FileName       string             `gorm:"column:file_name;not null"`
	FileSize       int64              `gorm:"column:file_size;not null"`
	ContentType    string             `gorm:"column:content_type;not null"`
	Checksum       string             `gorm:"column:checksum"`
	UploadStatus   enums.UploadStatus `gorm:"column:upload_status;not null;default:'pending'"`
	ErrorMessage   *string            `gorm:"column:error_message"`

	ExternalCacheURL        *string    `gorm:"column:external_cache_url"`
	ExternalCacheUploadedAt *time.Time `gorm:"column:external_cache_uploaded_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsCompleted reports whether the stored object is safely retrievable.
func (a *Artifact) IsCompleted() bool {
	return a != nil && a.UploadStatus == enums.UploadStatusCompleted
}
