package assets

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/slidereel/slidereel-backend/pkg/db/models"
	"github.com/slidereel/slidereel-backend/pkg/enums"
)

// Repository exposes artifact metadata persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an artifact repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists an artifact record.
func (r *Repository) Create(ctx context.Context, artifact *models.Artifact) (*models.Artifact, error) {
	if err := r.db.WithContext(ctx).Create(artifact).Error; err != nil {
		return nil, err
	}
	return artifact, nil
}

// FindByID retrieves an artifact by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Artifact, error) {
	var a models.Artifact
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByScope retrieves the artifact for a (presentation, slide, kind) scope,
// or nil when none exists. slideID must be nil for presentation-scoped kinds.
func (r *Repository) FindByScope(ctx context.Context, presentationID uuid.UUID, slideID *uuid.UUID, kind enums.ArtifactKind) (*models.Artifact, error) {
	query := r.db.WithContext(ctx).
		Where("presentation_id = ? AND kind = ?", presentationID, kind)
	if slideID != nil {
		query = query.Where("slide_id = ?", *slideID)
	} else {
		query = query.Where("slide_id IS NULL")
	}

	var a models.Artifact
	err := query.Order("created_at DESC").First(&a).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// ListByPresentation returns all artifacts of a presentation.
func (r *Repository) ListByPresentation(ctx context.Context, presentationID uuid.UUID) ([]models.Artifact, error) {
	var artifacts []models.Artifact
	err := r.db.WithContext(ctx).
		Where("presentation_id = ?", presentationID).
		Order("created_at ASC").
		Find(&artifacts).Error
	if err != nil {
		return nil, err
	}
	return artifacts, nil
}

// ListBySlide returns all artifacts of a slide.
func (r *Repository) ListBySlide(ctx context.Context, slideID uuid.UUID) ([]models.Artifact, error) {
	var artifacts []models.Artifact
	err := r.db.WithContext(ctx).
		Where("slide_id = ?", slideID).
		Order("created_at ASC").
		Find(&artifacts).Error
	if err != nil {
		return nil, err
	}
	return artifacts, nil
}

// UpdateStatus transitions the upload status and records an optional error message.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.UploadStatus, errorMessage *string) error {
	updates := map[string]any{
		"upload_status": status,
		"error_message": errorMessage,
	}
	return r.db.WithContext(ctx).
		Model(&models.Artifact{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// SetExternalCache records the re-hosted URL and upload time on the artifact.
func (r *Repository) SetExternalCache(ctx context.Context, id uuid.UUID, url string, uploadedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Artifact{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"external_cache_url":         url,
			"external_cache_uploaded_at": uploadedAt,
		}).Error
}

// ClearExternalCache removes cached external URLs for all artifacts of a
// presentation and returns how many rows were touched.
func (r *Repository) ClearExternalCache(ctx context.Context, presentationID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Artifact{}).
		Where("presentation_id = ? AND external_cache_url IS NOT NULL", presentationID).
		Updates(map[string]any{
			"external_cache_url":         nil,
			"external_cache_uploaded_at": nil,
		})
	return result.RowsAffected, result.Error
}

// Delete removes an artifact record.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Artifact{}).Error
}

// ListPendingOlderThan returns artifacts stuck in pending since before cutoff.
func (r *Repository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.Artifact, error) {
	var artifacts []models.Artifact
	err := r.db.WithContext(ctx).
		Where("upload_status = ? AND created_at < ?", enums.UploadStatusPending, cutoff).
		Find(&artifacts).Error
	if err != nil {
		return nil, err
	}
	return artifacts, nil
}
