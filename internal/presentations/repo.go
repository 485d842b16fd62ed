package presentations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/slidereel/slidereel-backend/pkg/db/models"
)

// Repository exposes presentation, slide and speech record lookups for the
// asset and readiness pipelines. All generated-content rows are written by the
// upstream generators; this service only reads them.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindPresentation retrieves a presentation by ID.
func (r *Repository) FindPresentation(ctx context.Context, id uuid.UUID) (*models.Presentation, error) {
	var p models.Presentation
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindSlide retrieves a slide by ID.
func (r *Repository) FindSlide(ctx context.Context, id uuid.UUID) (*models.Slide, error) {
	var s models.Slide
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSlides returns all slides of a presentation ordered by position.
func (r *Repository) ListSlides(ctx context.Context, presentationID uuid.UUID) ([]models.Slide, error) {
	var slides []models.Slide
	err := r.db.WithContext(ctx).
		Where("presentation_id = ?", presentationID).
		Order("position ASC").
		Find(&slides).Error
	if err != nil {
		return nil, err
	}
	return slides, nil
}

// ActiveSpeechRecord returns the most recent active narration take for a
// slide, or nil when none exists.
func (r *Repository) ActiveSpeechRecord(ctx context.Context, slideID uuid.UUID) (*models.SpeechRecord, error) {
	var rec models.SpeechRecord
	err := r.db.WithContext(ctx).
		Where("slide_id = ? AND is_active = ?", slideID, true).
		Order("created_at DESC").
		First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
