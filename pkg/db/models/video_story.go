package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/slidereel/slidereel-backend/pkg/enums"
)

// VideoStory is a composed timeline submitted (or submittable) to a render
// provider. The timeline JSON is stored verbatim so a render can be retried
// without recomposing.
type VideoStory struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PresentationID uuid.UUID            `gorm:"column:presentation_id;type:uuid;not null;index"`
	Provider       enums.RenderProvider `gorm:"column:provider;not null"`
	Timeline       []byte               `gorm:"column:timeline;type:jsonb;not null"`
	ProviderJobID  *string              `gorm:"column:provider_job_id"`
	Status         enums.RenderStatus   `gorm:"column:status;not null;default:'queued'"`
	OutputURL      *string              `gorm:"column:output_url"`
	ErrorMessage   *string              `gorm:"column:error_message"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
