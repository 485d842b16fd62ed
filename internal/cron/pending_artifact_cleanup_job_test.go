package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidereel/slidereel-backend/pkg/db/models"
	"github.com/slidereel/slidereel-backend/pkg/enums"
	"github.com/slidereel/slidereel-backend/pkg/logger"
)

type fakePendingArtifactRepo struct {
	rows      []models.Artifact
	gotCutoff time.Time
	deleted   []uuid.UUID
	deleteErr error
}

func (f *fakePendingArtifactRepo) ListPendingOlderThan(_ context.Context, cutoff time.Time) ([]models.Artifact, error) {
	f.gotCutoff = cutoff
	return f.rows, nil
}

func (f *fakePendingArtifactRepo) Delete(_ context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeURLCleaner struct {
	cleaned []uuid.UUID
	err     error
}

func (f *fakeURLCleaner) DeleteForArtifact(_ context.Context, artifactID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.cleaned = append(f.cleaned, artifactID)
	return nil
}

type fakeObjectStore struct {
	deleted []string
	err     error
}

func (f *fakeObjectStore) DeleteObject(_ context.Context, bucket, object string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, bucket+"/"+object)
	return nil
}

func pendingArtifact(age time.Duration) models.Artifact {
	return models.Artifact{
		ID:             uuid.New(),
		PresentationID: uuid.New(),
		Kind:           enums.ArtifactKindSlideImage,
		Bucket:         "sr-images",
		ObjectKey:      "presentations/p/slides/s/images/20260101T000000Z_a.png",
		UploadStatus:   enums.UploadStatusPending,
		CreatedAt:      time.Now().Add(-age),
	}
}

func cronTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestPendingArtifactCleanupDeletesStuckRows(t *testing.T) {
	stuck := pendingArtifact(48 * time.Hour)
	repo := &fakePendingArtifactRepo{rows: []models.Artifact{stuck}}
	urls := &fakeURLCleaner{}
	store := &fakeObjectStore{}

	job, err := NewPendingArtifactCleanupJob(PendingArtifactCleanupJobParams{
		Logger:    cronTestLogger(),
		Artifacts: repo,
		URLs:      urls,
		Store:     store,
		MaxAge:    24 * time.Hour,
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []uuid.UUID{stuck.ID}, repo.deleted)
	assert.Equal(t, []uuid.UUID{stuck.ID}, urls.cleaned)
	assert.Equal(t, []string{stuck.Bucket + "/" + stuck.ObjectKey}, store.deleted)
	assert.WithinDuration(t, time.Now().UTC().Add(-24*time.Hour), repo.gotCutoff, time.Minute)
}

func TestPendingArtifactCleanupKeepsRowWhenObjectDeleteFails(t *testing.T) {
	stuck := pendingArtifact(48 * time.Hour)
	repo := &fakePendingArtifactRepo{rows: []models.Artifact{stuck}}
	store := &fakeObjectStore{err: errors.New("storage unavailable")}

	job, err := NewPendingArtifactCleanupJob(PendingArtifactCleanupJobParams{
		Logger:    cronTestLogger(),
		Artifacts: repo,
		URLs:      &fakeURLCleaner{},
		Store:     store,
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()), "per-row failures must not fail the job")
	assert.Empty(t, repo.deleted, "row must survive until the object is confirmed gone")
}

func TestPendingArtifactCleanupValidatesParams(t *testing.T) {
	_, err := NewPendingArtifactCleanupJob(PendingArtifactCleanupJobParams{
		Logger: cronTestLogger(),
		URLs:   &fakeURLCleaner{},
		Store:  &fakeObjectStore{},
	})
	require.Error(t, err)
}
