package models

import (
	"time"

	"github.com/google/uuid"
)

// Presentation is the root aggregate for a deck being turned into a video.
type Presentation struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title     string    `gorm:"column:title;not null"`
	Subtitle  string    `gorm:"column:subtitle"`
	Author    string    `gorm:"column:author"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
