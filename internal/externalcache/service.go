package externalcache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/slidereel/slidereel-backend/pkg/config"
	"github.com/slidereel/slidereel-backend/pkg/db/models"
	pkgerrors "github.com/slidereel/slidereel-backend/pkg/errors"
	"github.com/slidereel/slidereel-backend/pkg/logger"
)

type artifactStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Artifact, error)
	SetExternalCache(ctx context.Context, id uuid.UUID, url string, uploadedAt time.Time) error
	ClearExternalCache(ctx context.Context, presentationID uuid.UUID) (int64, error)
}

type assetIngester interface {
	IngestAsset(ctx context.Context, sourceURL string) (string, error)
}

// Service re-hosts published artifacts on the render provider's asset ingest
// endpoint so composition timelines can reference provider-local URLs.
// Everything here is an optimization: callers fall back to direct download
// URLs whenever the cache cannot serve.
type Service interface {
	Upload(ctx context.Context, artifactID uuid.UUID, sourceURL string) (string, error)
	CachedURL(ctx context.Context, artifactID uuid.UUID) (string, bool)
	RefreshAll(ctx context.Context, presentationID uuid.UUID) (int64, error)
}

type service struct {
	artifacts artifactStore
	ingester  assetIngester
	ttl       time.Duration
	logg      *logger.Logger
	now       func() time.Time
}

// NewService constructs the external cache publisher.
func NewService(artifacts artifactStore, ingester assetIngester, cfg config.AssetsConfig, logg *logger.Logger) (Service, error) {
	if artifacts == nil {
		return nil, fmt.Errorf("artifact store required")
	}
	if ingester == nil {
		return nil, fmt.Errorf("asset ingester required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		artifacts: artifacts,
		ingester:  ingester,
		ttl:       cfg.ExternalCacheTTL(),
		logg:      logg,
		now:       time.Now,
	}, nil
}

// Upload re-hosts sourceURL on the provider and records the result on the
// artifact row. Transient ingest failures are retried with backoff.
func (s *service) Upload(ctx context.Context, artifactID uuid.UUID, sourceURL string) (string, error) {
	if artifactID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "artifact id required")
	}
	if sourceURL == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "source url required")
	}

	ctx = s.logg.WithArtifactID(ctx, artifactID.String())

	var hostedURL string
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		url, err := s.ingester.IngestAsset(ctx, sourceURL)
		if err != nil {
			return retry.RetryableError(err)
		}
		hostedURL = url
		return nil
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ingest asset on provider")
	}

	uploadedAt := s.now().UTC()
	if err := s.artifacts.SetExternalCache(ctx, artifactID, hostedURL, uploadedAt); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record external cache url")
	}

	s.logg.Debug(ctx, "artifact re-hosted on provider")
	return hostedURL, nil
}

// CachedURL returns the re-hosted URL while it is inside the cache window.
// Any miss, expiry or lookup failure reads as a plain miss.
func (s *service) CachedURL(ctx context.Context, artifactID uuid.UUID) (string, bool) {
	artifact, err := s.artifacts.FindByID(ctx, artifactID)
	if err != nil {
		s.logg.Warn(ctx, "external cache lookup failed: "+err.Error())
		return "", false
	}
	return s.cachedURLFromRow(artifact)
}

func (s *service) cachedURLFromRow(artifact *models.Artifact) (string, bool) {
	if artifact == nil || artifact.ExternalCacheURL == nil || artifact.ExternalCacheUploadedAt == nil {
		return "", false
	}
	if s.ttl <= 0 {
		return "", false
	}
	if !s.now().Before(artifact.ExternalCacheUploadedAt.Add(s.ttl)) {
		return "", false
	}
	return *artifact.ExternalCacheURL, true
}

// RefreshAll clears cached URLs for every artifact of the presentation so the
// next composition re-uploads them.
func (s *service) RefreshAll(ctx context.Context, presentationID uuid.UUID) (int64, error) {
	if presentationID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "presentation id required")
	}
	count, err := s.artifacts.ClearExternalCache(ctx, presentationID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear external cache urls")
	}
	return count, nil
}
