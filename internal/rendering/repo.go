package rendering

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/slidereel/slidereel-backend/pkg/db/models"
	"github.com/slidereel/slidereel-backend/pkg/enums"
)

// Repository persists video stories and their render lifecycle.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a video story repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a composed video story.
func (r *Repository) Create(ctx context.Context, story *models.VideoStory) (*models.VideoStory, error) {
	if err := r.db.WithContext(ctx).Create(story).Error; err != nil {
		return nil, err
	}
	return story, nil
}

// FindByID retrieves a video story by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.VideoStory, error) {
	var story models.VideoStory
	if err := r.db.WithContext(ctx).First(&story, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &story, nil
}

// LatestByPresentation returns the newest video story for a presentation, or
// nil when none has been composed yet.
func (r *Repository) LatestByPresentation(ctx context.Context, presentationID uuid.UUID) (*models.VideoStory, error) {
	var story models.VideoStory
	err := r.db.WithContext(ctx).
		Where("presentation_id = ?", presentationID).
		Order("created_at DESC").
		First(&story).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &story, nil
}

// SetProviderJob records the provider job id handed back at submission time.
func (r *Repository) SetProviderJob(ctx context.Context, id uuid.UUID, jobID string, status enums.RenderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.VideoStory{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"provider_job_id": jobID,
			"status":          status,
		}).Error
}

// UpdateStatus transitions the render status and records the output URL or
// error message observed from the provider.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.RenderStatus, outputURL, errorMessage *string) error {
	updates := map[string]any{
		"status": status,
	}
	if outputURL != nil {
		updates["output_url"] = *outputURL
	}
	if errorMessage != nil {
		updates["error_message"] = *errorMessage
	}
	return r.db.WithContext(ctx).
		Model(&models.VideoStory{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ListUnfinished returns stories whose render has not reached a terminal
// state, oldest first. Used to resume monitoring after a restart.
func (r *Repository) ListUnfinished(ctx context.Context) ([]models.VideoStory, error) {
	var stories []models.VideoStory
	err := r.db.WithContext(ctx).
		Where("status IN ? AND provider_job_id IS NOT NULL",
			[]enums.RenderStatus{enums.RenderStatusQueued, enums.RenderStatusRendering}).
		Order("created_at ASC").
		Find(&stories).Error
	if err != nil {
		return nil, err
	}
	return stories, nil
}
