package models

import (
	"time"

	"github.com/google/uuid"
)

// SpeechRecord is one synthesized narration take for a slide. Regenerating
// audio inserts a new active record and deactivates the previous one; the
// asset pipeline always publishes the most recent active take.
type SpeechRecord struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SlideID   uuid.UUID `gorm:"column:slide_id;type:uuid;not null;index"`
	AudioPath string    `gorm:"column:audio_path;not null"`
	Voice     string    `gorm:"column:voice"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
