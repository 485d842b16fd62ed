package models

import (
	"time"

	"github.com/google/uuid"
)

// Slide holds the generated per-slide content the video pipeline consumes.
// Path columns point at files produced by the upstream generators on shared
// storage; nil means the artifact was never generated.
type Slide struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PresentationID    uuid.UUID  `gorm:"column:presentation_id;type:uuid;not null;index"`
	Position          int        `gorm:"column:position;not null"`
	Title             string     `gorm:"column:title"`
	Narrative         *string    `gorm:"column:narrative"`
	EnhancedNarrative *string    `gorm:"column:enhanced_narrative"`
	ImagePath         *string    `gorm:"column:image_path"`
	AvatarVideoPath   *string    `gorm:"column:avatar_video_path"`
	AvatarDuration    *float64   `gorm:"column:avatar_duration_seconds"`
	AvatarBackground  *string    `gorm:"column:avatar_background_color"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
