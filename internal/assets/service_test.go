package assets

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidereel/slidereel-backend/pkg/config"
	"github.com/slidereel/slidereel-backend/pkg/db/models"
	"github.com/slidereel/slidereel-backend/pkg/enums"
	pkgerrors "github.com/slidereel/slidereel-backend/pkg/errors"
	"github.com/slidereel/slidereel-backend/pkg/logger"
)

type stubArtifactRepo struct {
	byScope map[string]*models.Artifact
	byID    map[uuid.UUID]*models.Artifact

	created []models.Artifact
	deleted []uuid.UUID
	status  map[uuid.UUID]enums.UploadStatus
}

func newStubArtifactRepo() *stubArtifactRepo {
	return &stubArtifactRepo{
		byScope: map[string]*models.Artifact{},
		byID:    map[uuid.UUID]*models.Artifact{},
		status:  map[uuid.UUID]enums.UploadStatus{},
	}
}

func (s *stubArtifactRepo) put(a *models.Artifact) {
	s.byScope[scopeKey(a.PresentationID, a.SlideID, a.Kind)] = a
	s.byID[a.ID] = a
}

func (s *stubArtifactRepo) Create(_ context.Context, artifact *models.Artifact) (*models.Artifact, error) {
	s.created = append(s.created, *artifact)
	s.put(artifact)
	return artifact, nil
}

func (s *stubArtifactRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Artifact, error) {
	if a, ok := s.byID[id]; ok {
		return a, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "artifact not found")
}

func (s *stubArtifactRepo) FindByScope(_ context.Context, presentationID uuid.UUID, slideID *uuid.UUID, kind enums.ArtifactKind) (*models.Artifact, error) {
	return s.byScope[scopeKey(presentationID, slideID, kind)], nil
}

func (s *stubArtifactRepo) ListByPresentation(context.Context, uuid.UUID) ([]models.Artifact, error) {
	return nil, nil
}

func (s *stubArtifactRepo) ListBySlide(context.Context, uuid.UUID) ([]models.Artifact, error) {
	return nil, nil
}

func (s *stubArtifactRepo) UpdateStatus(_ context.Context, id uuid.UUID, status enums.UploadStatus, errorMessage *string) error {
	s.status[id] = status
	if a, ok := s.byID[id]; ok {
		a.UploadStatus = status
		a.ErrorMessage = errorMessage
	}
	return nil
}

func (s *stubArtifactRepo) Delete(_ context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	if a, ok := s.byID[id]; ok {
		delete(s.byScope, scopeKey(a.PresentationID, a.SlideID, a.Kind))
		delete(s.byID, id)
	}
	return nil
}

type stubSlideSource struct {
	slide  *models.Slide
	speech *models.SpeechRecord
}

func (s *stubSlideSource) FindSlide(_ context.Context, id uuid.UUID) (*models.Slide, error) {
	if s.slide == nil || s.slide.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "slide not found")
	}
	return s.slide, nil
}

func (s *stubSlideSource) ActiveSpeechRecord(context.Context, uuid.UUID) (*models.SpeechRecord, error) {
	return s.speech, nil
}

type stubLocator struct {
	source *SourceFile
	err    error
	calls  int
}

func (s *stubLocator) Locate(enums.ArtifactKind, uuid.UUID, *models.Slide, *models.SpeechRecord) (*SourceFile, error) {
	s.calls++
	return s.source, s.err
}

type stubIssuer struct {
	uploadURL   string
	downloads   int
	active      *models.AccessURL
	touched     []uuid.UUID
	deletedFor  []uuid.UUID
	uploadCalls int
}

func (s *stubIssuer) IssueUpload(_ context.Context, artifact *models.Artifact) (*models.AccessURL, error) {
	s.uploadCalls++
	return &models.AccessURL{
		ID:         uuid.New(),
		ArtifactID: artifact.ID,
		URLType:    enums.URLTypeUpload,
		URL:        s.uploadURL,
		ExpiresAt:  time.Now().Add(time.Hour),
		IsActive:   true,
	}, nil
}

func (s *stubIssuer) IssueDownload(_ context.Context, artifact *models.Artifact) (*models.AccessURL, error) {
	s.downloads++
	return &models.AccessURL{
		ID:         uuid.New(),
		ArtifactID: artifact.ID,
		URLType:    enums.URLTypeDownload,
		URL:        "https://storage.example/download",
		ExpiresAt:  time.Now().Add(24 * time.Hour),
		IsActive:   true,
	}, nil
}

func (s *stubIssuer) ActiveDownload(context.Context, *models.Artifact) (*models.AccessURL, error) {
	return s.active, nil
}

func (s *stubIssuer) TouchAccess(_ context.Context, id uuid.UUID) error {
	s.touched = append(s.touched, id)
	return nil
}

func (s *stubIssuer) DeleteForArtifact(_ context.Context, artifactID uuid.UUID) error {
	s.deletedFor = append(s.deletedFor, artifactID)
	return nil
}

type stubObjectStore struct {
	deleted []string
}

func (s *stubObjectStore) DeleteObject(_ context.Context, bucket, object string) error {
	s.deleted = append(s.deleted, bucket+"/"+object)
	return nil
}

func testGCSConfig() config.GCSConfig {
	return config.GCSConfig{
		ImageBucket: "sr-images",
		AudioBucket: "sr-audio",
		VideoBucket: "sr-video",
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "assets-test", Output: io.Discard})
}

func writeSourceFile(t *testing.T, name, content string) *SourceFile {
	t.Helper()
	dir := t.TempDir()
	full := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	return &SourceFile{Path: full, FileName: name, Size: int64(len(content))}
}

func newUploadServer(t *testing.T, status int) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPut, r.Method)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestPublishIdempotentReturnsExisting(t *testing.T) {
	repo := newStubArtifactRepo()
	locator := &stubLocator{}
	issuer := &stubIssuer{active: &models.AccessURL{URL: "https://storage.example/active"}}
	store := &stubObjectStore{}

	presentationID := uuid.New()
	slideID := uuid.New()
	existing := &models.Artifact{
		ID:             uuid.New(),
		PresentationID: presentationID,
		SlideID:        &slideID,
		Kind:           enums.ArtifactKindSlideImage,
		Bucket:         "sr-images",
		ObjectKey:      "presentations/x/slides/y/images/old.png",
		UploadStatus:   enums.UploadStatusCompleted,
	}
	repo.put(existing)

	svc, err := NewService(repo, &stubSlideSource{}, locator, issuer, store, nil, nil, testLogger(), testGCSConfig())
	require.NoError(t, err)

	result, err := svc.Publish(context.Background(), PublishInput{
		PresentationID: presentationID,
		SlideID:        &slideID,
		Kind:           enums.ArtifactKindSlideImage,
	})
	require.NoError(t, err)

	assert.True(t, result.AlreadyPublished)
	assert.Equal(t, existing.ID, result.Artifact.ID)
	assert.Equal(t, "https://storage.example/active", result.DownloadURL.URL)
	assert.Len(t, issuer.touched, 1, "reusing the active url must count the access")
	assert.Zero(t, issuer.downloads)
	assert.Zero(t, locator.calls, "idempotent publish must not relocate the file")
	assert.Empty(t, store.deleted)
	assert.Empty(t, repo.created)
}

func TestPublishForceRepublishesUnderNewKey(t *testing.T) {
	server, uploadCalls := newUploadServer(t, http.StatusOK)

	repo := newStubArtifactRepo()
	source := writeSourceFile(t, "slide 1.png", "png-bytes")
	locator := &stubLocator{source: source}
	issuer := &stubIssuer{uploadURL: server.URL + "/upload"}
	store := &stubObjectStore{}

	presentationID := uuid.New()
	slideID := uuid.New()
	slide := &models.Slide{ID: slideID, PresentationID: presentationID}
	existing := &models.Artifact{
		ID:             uuid.New(),
		PresentationID: presentationID,
		SlideID:        &slideID,
		Kind:           enums.ArtifactKindSlideImage,
		Bucket:         "sr-images",
		ObjectKey:      "presentations/p/slides/s/images/20250101T000000Z_old.png",
		UploadStatus:   enums.UploadStatusCompleted,
	}
	repo.put(existing)

	svc, err := NewService(repo, &stubSlideSource{slide: slide}, locator, issuer, store, nil, nil, testLogger(), testGCSConfig())
	require.NoError(t, err)

	result, err := svc.Publish(context.Background(), PublishInput{
		PresentationID: presentationID,
		SlideID:        &slideID,
		Kind:           enums.ArtifactKindSlideImage,
		ForceRepublish: true,
	})
	require.NoError(t, err)

	assert.False(t, result.AlreadyPublished)
	assert.NotEqual(t, existing.ObjectKey, result.Artifact.ObjectKey)
	assert.Contains(t, result.Artifact.ObjectKey,
		"presentations/"+presentationID.String()+"/slides/"+slideID.String()+"/images/")
	assert.Contains(t, result.Artifact.ObjectKey, "slide-1.png")
	assert.Equal(t, enums.UploadStatusCompleted, result.Artifact.UploadStatus)
	assert.NotEmpty(t, result.Artifact.Checksum)

	assert.Equal(t, []string{"sr-images/" + existing.ObjectKey}, store.deleted)
	assert.Contains(t, repo.deleted, existing.ID)
	assert.Contains(t, issuer.deletedFor, existing.ID)
	assert.Equal(t, 1, *uploadCalls)
	require.NotNil(t, result.DownloadURL)
}

func TestPublishFileNotLocated(t *testing.T) {
	repo := newStubArtifactRepo()
	locator := &stubLocator{err: pkgerrors.New(pkgerrors.CodeFileNotLocated, "no candidate file")}

	presentationID := uuid.New()
	slideID := uuid.New()
	slide := &models.Slide{ID: slideID, PresentationID: presentationID}

	svc, err := NewService(repo, &stubSlideSource{slide: slide}, locator, &stubIssuer{}, &stubObjectStore{}, nil, nil, testLogger(), testGCSConfig())
	require.NoError(t, err)

	_, err = svc.Publish(context.Background(), PublishInput{
		PresentationID: presentationID,
		SlideID:        &slideID,
		Kind:           enums.ArtifactKindSlideImage,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeFileNotLocated))
	assert.Empty(t, repo.created)
}

func TestPublishUploadFailureMarksArtifactFailed(t *testing.T) {
	server, _ := newUploadServer(t, http.StatusServiceUnavailable)

	repo := newStubArtifactRepo()
	source := writeSourceFile(t, "intro.mp4", "mp4-bytes")
	locator := &stubLocator{source: source}
	issuer := &stubIssuer{uploadURL: server.URL + "/upload"}

	presentationID := uuid.New()

	svc, err := NewService(repo, &stubSlideSource{}, locator, issuer, &stubObjectStore{}, nil, nil, testLogger(), testGCSConfig())
	require.NoError(t, err)

	_, err = svc.Publish(context.Background(), PublishInput{
		PresentationID: presentationID,
		Kind:           enums.ArtifactKindIntroVideo,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUploadFailed))

	require.Len(t, repo.created, 1)
	assert.Equal(t, enums.UploadStatusFailed, repo.status[repo.created[0].ID])
}

func TestPublishValidation(t *testing.T) {
	svc, err := NewService(newStubArtifactRepo(), &stubSlideSource{}, &stubLocator{}, &stubIssuer{}, &stubObjectStore{}, nil, nil, testLogger(), testGCSConfig())
	require.NoError(t, err)

	slideID := uuid.New()
	cases := []struct {
		name  string
		input PublishInput
	}{
		{name: "missing presentation", input: PublishInput{Kind: enums.ArtifactKindSlideImage, SlideID: &slideID}},
		{name: "invalid kind", input: PublishInput{PresentationID: uuid.New(), Kind: "bogus"}},
		{name: "slide kind without slide", input: PublishInput{PresentationID: uuid.New(), Kind: enums.ArtifactKindSlideAudio}},
		{name: "presentation kind with slide", input: PublishInput{PresentationID: uuid.New(), Kind: enums.ArtifactKindFullVideo, SlideID: &slideID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Publish(context.Background(), tc.input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestBuildObjectKeyShapes(t *testing.T) {
	presentationID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	slideID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	slideKey := buildObjectKey(presentationID, &slideID, enums.ArtifactKindSlideAudio, "take 3.mp3", now)
	assert.Equal(t,
		"presentations/11111111-1111-1111-1111-111111111111/slides/22222222-2222-2222-2222-222222222222/audio/20260314T092653Z_take-3.mp3",
		slideKey)

	fullKey := buildObjectKey(presentationID, nil, enums.ArtifactKindFullVideo, "final.mp4", now)
	assert.Equal(t,
		"presentations/11111111-1111-1111-1111-111111111111/videos/20260314T092653Z_final.mp4",
		fullKey)
}
