package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/slidereel/slidereel-backend/pkg/config"
	"github.com/slidereel/slidereel-backend/pkg/db/models"
	"github.com/slidereel/slidereel-backend/pkg/enums"
	pkgerrors "github.com/slidereel/slidereel-backend/pkg/errors"
	"github.com/slidereel/slidereel-backend/pkg/logger"
	"github.com/slidereel/slidereel-backend/pkg/metrics"
	"github.com/slidereel/slidereel-backend/pkg/pubsub"
)

type artifactRepository interface {
	Create(ctx context.Context, artifact *models.Artifact) (*models.Artifact, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Artifact, error)
	FindByScope(ctx context.Context, presentationID uuid.UUID, slideID *uuid.UUID, kind enums.ArtifactKind) (*models.Artifact, error)
	ListByPresentation(ctx context.Context, presentationID uuid.UUID) ([]models.Artifact, error)
	ListBySlide(ctx context.Context, slideID uuid.UUID) ([]models.Artifact, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.UploadStatus, errorMessage *string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type slideSource interface {
	FindSlide(ctx context.Context, id uuid.UUID) (*models.Slide, error)
	ActiveSpeechRecord(ctx context.Context, slideID uuid.UUID) (*models.SpeechRecord, error)
}

type fileLocator interface {
	Locate(kind enums.ArtifactKind, presentationID uuid.UUID, slide *models.Slide, speech *models.SpeechRecord) (*SourceFile, error)
}

type urlIssuer interface {
	IssueUpload(ctx context.Context, artifact *models.Artifact) (*models.AccessURL, error)
	IssueDownload(ctx context.Context, artifact *models.Artifact) (*models.AccessURL, error)
	ActiveDownload(ctx context.Context, artifact *models.Artifact) (*models.AccessURL, error)
	TouchAccess(ctx context.Context, id uuid.UUID) error
	DeleteForArtifact(ctx context.Context, artifactID uuid.UUID) error
}

type objectStore interface {
	DeleteObject(ctx context.Context, bucket, object string) error
}

type eventEmitter interface {
	AssetEvent(ctx context.Context, eventType string, event pubsub.AssetEvent)
}

// PublishInput identifies the artifact scope to publish.
type PublishInput struct {
	PresentationID uuid.UUID
	SlideID        *uuid.UUID
	Kind           enums.ArtifactKind
	ForceRepublish bool
}

// PublishResult is the outcome of a publish call. AlreadyPublished marks the
// idempotent path where an existing completed artifact was returned.
type PublishResult struct {
	Artifact         *models.Artifact  `json:"artifact"`
	DownloadURL      *models.AccessURL `json:"download_url,omitempty"`
	AlreadyPublished bool              `json:"already_published"`
}

// AssetView pairs an artifact with a fresh download URL when retrievable.
type AssetView struct {
	Artifact    models.Artifact   `json:"artifact"`
	DownloadURL *models.AccessURL `json:"download_url,omitempty"`
}

// Service exposes asset publication semantics.
type Service interface {
	Publish(ctx context.Context, input PublishInput) (*PublishResult, error)
	Get(ctx context.Context, id uuid.UUID) (*AssetView, error)
	ListByPresentation(ctx context.Context, presentationID uuid.UUID) ([]AssetView, error)
	ListBySlide(ctx context.Context, slideID uuid.UUID) ([]AssetView, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo       artifactRepository
	slides     slideSource
	locator    fileLocator
	urls       urlIssuer
	store      objectStore
	events     eventEmitter
	metrics    *metrics.AssetMetrics
	logg       *logger.Logger
	gcsCfg     config.GCSConfig
	locks      *keyedLock
	httpClient *http.Client
	now        func() time.Time
}

// NewService constructs the asset publication service.
func NewService(
	repo artifactRepository,
	slides slideSource,
	locator fileLocator,
	urls urlIssuer,
	store objectStore,
	events eventEmitter,
	assetMetrics *metrics.AssetMetrics,
	logg *logger.Logger,
	gcsCfg config.GCSConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("artifact repository required")
	}
	if slides == nil {
		return nil, fmt.Errorf("slide source required")
	}
	if locator == nil {
		return nil, fmt.Errorf("file locator required")
	}
	if urls == nil {
		return nil, fmt.Errorf("url issuer required")
	}
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		slides:     slides,
		locator:    locator,
		urls:       urls,
		store:      store,
		events:     events,
		metrics:    assetMetrics,
		logg:       logg,
		gcsCfg:     gcsCfg,
		locks:      newKeyedLock(),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		now:        time.Now,
	}, nil
}

func (s *service) Publish(ctx context.Context, input PublishInput) (*PublishResult, error) {
	if input.PresentationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "presentation id required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid artifact kind")
	}
	if input.Kind.IsSlideScoped() && (input.SlideID == nil || *input.SlideID == uuid.Nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slide id required for slide-scoped kind")
	}
	if !input.Kind.IsSlideScoped() && input.SlideID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slide id not allowed for presentation-scoped kind")
	}

	ctx = s.logg.WithPresentationID(ctx, input.PresentationID.String())
	if input.SlideID != nil {
		ctx = s.logg.WithSlideID(ctx, input.SlideID.String())
	}

	// Publishes for the same scope run one at a time; concurrent callers of a
	// non-forced publish observe the first caller's completed artifact.
	unlock := s.locks.Lock(scopeKey(input.PresentationID, input.SlideID, input.Kind))
	defer unlock()

	existing, err := s.repo.FindByScope(ctx, input.PresentationID, input.SlideID, input.Kind)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup existing artifact")
	}

	if existing != nil && existing.IsCompleted() && !input.ForceRepublish {
		download, err := s.freshDownloadURL(ctx, existing)
		if err != nil {
			return nil, err
		}
		s.logg.Debug(ctx, "artifact already published, returning existing")
		return &PublishResult{Artifact: existing, DownloadURL: download, AlreadyPublished: true}, nil
	}

	// Forced republishes and retries of pending/failed rows clear the previous
	// publication before re-publishing under a new key.
	if existing != nil {
		s.cleanupArtifact(ctx, existing)
	}

	artifact, download, err := s.publishFresh(ctx, input)
	if err != nil {
		s.metrics.IncPublishError(input.Kind.String())
		return nil, err
	}

	s.metrics.IncPublish(input.Kind.String())
	s.emitAssetEvent(ctx, eventTypeForPublish(existing != nil), artifact)

	return &PublishResult{Artifact: artifact, DownloadURL: download}, nil
}

func (s *service) publishFresh(ctx context.Context, input PublishInput) (*models.Artifact, *models.AccessURL, error) {
	var slide *models.Slide
	var speech *models.SpeechRecord
	var err error

	if input.Kind.IsSlideScoped() {
		slide, err = s.slides.FindSlide(ctx, *input.SlideID)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "load slide")
		}
		if slide.PresentationID != input.PresentationID {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "slide does not belong to presentation")
		}
		if input.Kind == enums.ArtifactKindSlideAudio {
			speech, err = s.slides.ActiveSpeechRecord(ctx, slide.ID)
			if err != nil {
				return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load speech record")
			}
		}
	}

	source, err := s.locator.Locate(input.Kind, input.PresentationID, slide, speech)
	if err != nil {
		return nil, nil, err
	}

	checksum, err := checksumFile(source.Path)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checksum source file")
	}

	contentType := contentTypeForKind(input.Kind)
	artifact := &models.Artifact{
		ID:             uuid.New(),
		PresentationID: input.PresentationID,
		SlideID:        input.SlideID,
		Kind:           input.Kind,
		Bucket:         bucketForKind(input.Kind, s.gcsCfg),
		ObjectKey:      buildObjectKey(input.PresentationID, input.SlideID, input.Kind, source.FileName, s.now()),
		FileName:       source.FileName,
		FileSize:       source.Size,
		ContentType:    contentType,
		Checksum:       checksum,
		UploadStatus:   enums.UploadStatusPending,
	}

	if _, err := s.repo.Create(ctx, artifact); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist artifact row")
	}
	ctx = s.logg.WithArtifactID(ctx, artifact.ID.String())

	uploadURL, err := s.urls.IssueUpload(ctx, artifact)
	if err != nil {
		_ = s.repo.Delete(ctx, artifact.ID)
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue upload url")
	}

	start := s.now()
	if err := s.uploadFile(ctx, uploadURL.URL, contentType, source); err != nil {
		msg := err.Error()
		_ = s.repo.UpdateStatus(ctx, artifact.ID, enums.UploadStatusFailed, &msg)
		return nil, nil, err
	}
	s.metrics.ObserveUpload(input.Kind.String(), s.now().Sub(start))

	if err := s.repo.UpdateStatus(ctx, artifact.ID, enums.UploadStatusCompleted, nil); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark artifact completed")
	}
	artifact.UploadStatus = enums.UploadStatusCompleted
	artifact.ErrorMessage = nil

	download, err := s.urls.IssueDownload(ctx, artifact)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue download url")
	}

	s.logg.Info(ctx, "artifact published")
	return artifact, download, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*AssetView, error) {
	artifact, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "load artifact")
	}
	view := &AssetView{Artifact: *artifact}
	if artifact.IsCompleted() {
		download, err := s.freshDownloadURL(ctx, artifact)
		if err != nil {
			return nil, err
		}
		view.DownloadURL = download
	}
	return view, nil
}

func (s *service) ListByPresentation(ctx context.Context, presentationID uuid.UUID) ([]AssetView, error) {
	artifacts, err := s.repo.ListByPresentation(ctx, presentationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list artifacts")
	}
	return s.attachDownloadURLs(ctx, artifacts)
}

func (s *service) ListBySlide(ctx context.Context, slideID uuid.UUID) ([]AssetView, error) {
	artifacts, err := s.repo.ListBySlide(ctx, slideID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list artifacts")
	}
	return s.attachDownloadURLs(ctx, artifacts)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	artifact, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "load artifact")
	}

	s.cleanupArtifact(ctx, artifact)
	s.emitAssetEvent(ctx, pubsub.EventAssetDeleted, artifact)
	return nil
}

// cleanupArtifact removes the stored object, its URLs and the row. Object and
// URL cleanup are best-effort; failures are logged, never surfaced.
func (s *service) cleanupArtifact(ctx context.Context, artifact *models.Artifact) {
	var cleanupErr error
	if err := s.store.DeleteObject(ctx, artifact.Bucket, artifact.ObjectKey); err != nil {
		cleanupErr = multierr.Append(cleanupErr, fmt.Errorf("delete object: %w", err))
	}
	if err := s.urls.DeleteForArtifact(ctx, artifact.ID); err != nil {
		cleanupErr = multierr.Append(cleanupErr, fmt.Errorf("delete access urls: %w", err))
	}
	if err := s.repo.Delete(ctx, artifact.ID); err != nil {
		cleanupErr = multierr.Append(cleanupErr, fmt.Errorf("delete artifact row: %w", err))
	}
	if cleanupErr != nil {
		s.logg.Warn(ctx, "artifact cleanup incomplete: "+cleanupErr.Error())
	}
}

func (s *service) attachDownloadURLs(ctx context.Context, artifacts []models.Artifact) ([]AssetView, error) {
	views := make([]AssetView, 0, len(artifacts))
	for i := range artifacts {
		view := AssetView{Artifact: artifacts[i]}
		if artifacts[i].IsCompleted() {
			download, err := s.freshDownloadURL(ctx, &artifacts[i])
			if err != nil {
				return nil, err
			}
			view.DownloadURL = download
		}
		views = append(views, view)
	}
	return views, nil
}

// freshDownloadURL reuses a valid active download URL, issuing a new one otherwise.
func (s *service) freshDownloadURL(ctx context.Context, artifact *models.Artifact) (*models.AccessURL, error) {
	active, err := s.urls.ActiveDownload(ctx, artifact)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup active download url")
	}
	if active != nil {
		if err := s.urls.TouchAccess(ctx, active.ID); err != nil {
			s.logg.Warn(ctx, "touch access count failed: "+err.Error())
		}
		return active, nil
	}
	download, err := s.urls.IssueDownload(ctx, artifact)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue download url")
	}
	return download, nil
}

func (s *service) uploadFile(ctx context.Context, signedURL, contentType string, source *SourceFile) error {
	file, err := os.Open(source.Path)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeFileNotLocated, err, "open source file")
	}
	defer func() { _ = file.Close() }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, file)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload request")
	}
	req.ContentLength = source.Size
	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUploadFailed, err, "upload object")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return pkgerrors.New(pkgerrors.CodeUploadFailed,
			fmt.Sprintf("upload returned %s: %s", resp.Status, strings.TrimSpace(string(body))))
	}
	return nil
}

func (s *service) emitAssetEvent(ctx context.Context, eventType string, artifact *models.Artifact) {
	if s.events == nil {
		return
	}
	event := pubsub.AssetEvent{
		ArtifactID:     artifact.ID.String(),
		PresentationID: artifact.PresentationID.String(),
		Kind:           artifact.Kind.String(),
		Bucket:         artifact.Bucket,
		ObjectKey:      artifact.ObjectKey,
		OccurredAt:     s.now().UTC(),
	}
	if artifact.SlideID != nil {
		event.SlideID = artifact.SlideID.String()
	}
	s.events.AssetEvent(ctx, eventType, event)
}

func eventTypeForPublish(republished bool) string {
	if republished {
		return pubsub.EventAssetRepublished
	}
	return pubsub.EventAssetPublished
}

func scopeKey(presentationID uuid.UUID, slideID *uuid.UUID, kind enums.ArtifactKind) string {
	if slideID != nil {
		return fmt.Sprintf("%s/%s/%s", presentationID, *slideID, kind)
	}
	return fmt.Sprintf("%s/-/%s", presentationID, kind)
}

func checksumFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
