package urls

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/slidereel/slidereel-backend/pkg/db/models"
	"github.com/slidereel/slidereel-backend/pkg/enums"
)

// Repository exposes access URL persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an access URL repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists an access URL record.
func (r *Repository) Create(ctx context.Context, accessURL *models.AccessURL) (*models.AccessURL, error) {
	if err := r.db.WithContext(ctx).Create(accessURL).Error; err != nil {
		return nil, err
	}
	return accessURL, nil
}

// NewestActive returns the most recently issued active URL of the given type
// for an artifact, or nil when none exists.
func (r *Repository) NewestActive(ctx context.Context, artifactID uuid.UUID, urlType enums.URLType) (*models.AccessURL, error) {
	var u models.AccessURL
	err := r.db.WithContext(ctx).
		Where("artifact_id = ? AND url_type = ? AND is_active = ?", artifactID, urlType, true).
		Order("created_at DESC").
		First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Deactivate marks all active URLs of the given type for an artifact inactive.
func (r *Repository) Deactivate(ctx context.Context, artifactID uuid.UUID, urlType enums.URLType) error {
	return r.db.WithContext(ctx).
		Model(&models.AccessURL{}).
		Where("artifact_id = ? AND url_type = ? AND is_active = ?", artifactID, urlType, true).
		Update("is_active", false).Error
}

// DeleteForArtifact removes all URL rows belonging to an artifact.
func (r *Repository) DeleteForArtifact(ctx context.Context, artifactID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("artifact_id = ?", artifactID).
		Delete(&models.AccessURL{}).Error
}

// IncrementAccess bumps the access counter on a URL row.
func (r *Repository) IncrementAccess(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.AccessURL{}).
		Where("id = ?", id).
		Update("access_count", gorm.Expr("access_count + 1")).Error
}

// DeactivateExpired marks active URLs past their expiry inactive and returns
// how many rows were touched.
func (r *Repository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AccessURL{}).
		Where("is_active = ? AND expires_at < ?", true, now).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}
