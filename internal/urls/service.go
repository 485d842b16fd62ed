package urls

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slidereel/slidereel-backend/pkg/config"
	"github.com/slidereel/slidereel-backend/pkg/db/models"
	"github.com/slidereel/slidereel-backend/pkg/enums"
	pkgerrors "github.com/slidereel/slidereel-backend/pkg/errors"
	"github.com/slidereel/slidereel-backend/pkg/logger"
	"github.com/slidereel/slidereel-backend/pkg/metrics"
)

type accessURLRepository interface {
	Create(ctx context.Context, accessURL *models.AccessURL) (*models.AccessURL, error)
	NewestActive(ctx context.Context, artifactID uuid.UUID, urlType enums.URLType) (*models.AccessURL, error)
	Deactivate(ctx context.Context, artifactID uuid.UUID, urlType enums.URLType) error
	DeleteForArtifact(ctx context.Context, artifactID uuid.UUID) error
	IncrementAccess(ctx context.Context, id uuid.UUID) error
}

type urlSigner interface {
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
}

// Service issues and tracks presigned access URLs for artifacts.
type Service interface {
	IssueUpload(ctx context.Context, artifact *models.Artifact) (*models.AccessURL, error)
	IssueDownload(ctx context.Context, artifact *models.Artifact) (*models.AccessURL, error)
	ActiveDownload(ctx context.Context, artifact *models.Artifact) (*models.AccessURL, error)
	Resign(ctx context.Context, artifact *models.Artifact, urlType enums.URLType) (*models.AccessURL, error)
	TouchAccess(ctx context.Context, id uuid.UUID) error
	DeleteForArtifact(ctx context.Context, artifactID uuid.UUID) error
}

type service struct {
	repo        accessURLRepository
	signer      urlSigner
	uploadTTL   time.Duration
	downloadTTL time.Duration
	safetyGap   time.Duration
	metrics     *metrics.AssetMetrics
	logg        *logger.Logger
	now         func() time.Time
}

// NewService constructs the URL issuer.
func NewService(repo accessURLRepository, signer urlSigner, gcsCfg config.GCSConfig, assetsCfg config.AssetsConfig, assetMetrics *metrics.AssetMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("access url repository required")
	}
	if signer == nil {
		return nil, fmt.Errorf("url signer required")
	}
	if gcsCfg.UploadURLExpiry <= 0 || gcsCfg.DownloadURLExpiry <= 0 {
		return nil, fmt.Errorf("url expiries must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        repo,
		signer:      signer,
		uploadTTL:   gcsCfg.UploadURLExpiry,
		downloadTTL: gcsCfg.DownloadURLExpiry,
		safetyGap:   assetsCfg.URLValiditySafetyGap,
		metrics:     assetMetrics,
		logg:        logg,
		now:         time.Now,
	}, nil
}

func (s *service) IssueUpload(ctx context.Context, artifact *models.Artifact) (*models.AccessURL, error) {
	if artifact == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "artifact required")
	}
	signed, err := s.signer.SignedURL(artifact.Bucket, artifact.ObjectKey, artifact.ContentType, s.uploadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}
	return s.persist(ctx, artifact.ID, enums.URLTypeUpload, signed, s.uploadTTL)
}

func (s *service) IssueDownload(ctx context.Context, artifact *models.Artifact) (*models.AccessURL, error) {
	if artifact == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "artifact required")
	}
	signed, err := s.signer.SignedReadURL(artifact.Bucket, artifact.ObjectKey, s.downloadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign download url")
	}
	return s.persist(ctx, artifact.ID, enums.URLTypeDownload, signed, s.downloadTTL)
}

// ActiveDownload returns the newest active download URL when it is still
// valid per its embedded expiry. Invalid rows are deactivated and (nil, nil)
// is returned so the caller issues a fresh URL.
func (s *service) ActiveDownload(ctx context.Context, artifact *models.Artifact) (*models.AccessURL, error) {
	if artifact == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "artifact required")
	}
	active, err := s.repo.NewestActive(ctx, artifact.ID, enums.URLTypeDownload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup active download url")
	}
	if active == nil {
		return nil, nil
	}
	if !IsValid(active.URL, s.now(), s.safetyGap) {
		if err := s.repo.Deactivate(ctx, artifact.ID, enums.URLTypeDownload); err != nil {
			s.logg.Warn(ctx, "deactivating expired download url failed: "+err.Error())
		}
		s.metrics.IncResign()
		return nil, nil
	}
	return active, nil
}

// Resign deactivates every URL of the given type and issues a fresh one.
func (s *service) Resign(ctx context.Context, artifact *models.Artifact, urlType enums.URLType) (*models.AccessURL, error) {
	if artifact == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "artifact required")
	}
	if !urlType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid url type")
	}
	if err := s.repo.Deactivate(ctx, artifact.ID, urlType); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate urls")
	}
	s.metrics.IncResign()

	if urlType == enums.URLTypeUpload {
		return s.IssueUpload(ctx, artifact)
	}
	return s.IssueDownload(ctx, artifact)
}

func (s *service) TouchAccess(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "access url id required")
	}
	if err := s.repo.IncrementAccess(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment access count")
	}
	return nil
}

func (s *service) DeleteForArtifact(ctx context.Context, artifactID uuid.UUID) error {
	return s.repo.DeleteForArtifact(ctx, artifactID)
}

func (s *service) persist(ctx context.Context, artifactID uuid.UUID, urlType enums.URLType, signed string, ttl time.Duration) (*models.AccessURL, error) {
	row := &models.AccessURL{
		ID:         uuid.New(),
		ArtifactID: artifactID,
		URLType:    urlType,
		URL:        signed,
		ExpiresAt:  s.now().Add(ttl),
		IsActive:   true,
	}
	if _, err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist access url")
	}
	s.metrics.IncURLIssued(urlType.String())
	return row, nil
}
