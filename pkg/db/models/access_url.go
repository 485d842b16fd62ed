package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/slidereel/slidereel-backend/pkg/enums"
)

// AccessURL is one presigned URL issued for an artifact. Rows are deactivated
// in bulk on resign, never mutated in place beyond the access counter.
type AccessURL struct {
	ID          uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ArtifactID  uuid.UUID     `gorm:"column:artifact_id;type:uuid;not null;index"`
	URLType     enums.URLType `gorm:"column:url_type;not null"`
	URL         string        `gorm:"column:url;not null"`
	ExpiresAt   time.Time     `gorm:"column:expires_at;not null"`
	IsActive    bool          `gorm:"column:is_active;not null;default:true"`
	AccessCount int64         `gorm:"column:access_count;not null;default:0"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime"`
}
