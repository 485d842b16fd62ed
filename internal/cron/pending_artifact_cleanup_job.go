package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/slidereel/slidereel-backend/pkg/db/models"
	"github.com/slidereel/slidereel-backend/pkg/logger"
)

const defaultPendingArtifactAge = 24 * time.Hour

type pendingArtifactRepo interface {
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.Artifact, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type artifactURLCleaner interface {
	DeleteForArtifact(ctx context.Context, artifactID uuid.UUID) error
}

type artifactObjectStore interface {
	DeleteObject(ctx context.Context, bucket, object string) error
}

// PendingArtifactCleanupJobParams configure the cleanup job.
type PendingArtifactCleanupJobParams struct {
	Logger    *logger.Logger
	Artifacts pendingArtifactRepo
	URLs      artifactURLCleaner
	Store     artifactObjectStore
	MaxAge    time.Duration
}

// NewPendingArtifactCleanupJob builds the job that removes artifact rows
// stuck in pending. A publish that died between row creation and upload
// leaves such a row behind; the signed upload URL may or may not have been
// used, so the object delete is attempted and tolerated when nothing exists.
func NewPendingArtifactCleanupJob(params PendingArtifactCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Artifacts == nil {
		return nil, fmt.Errorf("artifact repository required")
	}
	if params.URLs == nil {
		return nil, fmt.Errorf("url cleaner required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultPendingArtifactAge
	}
	return &pendingArtifactCleanupJob{
		logg:      params.Logger,
		artifacts: params.Artifacts,
		urls:      params.URLs,
		store:     params.Store,
		maxAge:    maxAge,
		now:       time.Now,
	}, nil
}

type pendingArtifactCleanupJob struct {
	logg      *logger.Logger
	artifacts pendingArtifactRepo
	urls      artifactURLCleaner
	store     artifactObjectStore
	maxAge    time.Duration
	now       func() time.Time
}

func (j *pendingArtifactCleanupJob) Name() string { return "pending-artifact-cleanup" }

func (j *pendingArtifactCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)
	rows, err := j.artifacts.ListPendingOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query pending artifacts: %w", err)
	}

	var deleted, failed int
	for i := range rows {
		artifact := &rows[i]
		if err := j.cleanupArtifact(ctx, artifact); err != nil {
			failed++
			rowCtx := j.logg.WithArtifactID(ctx, artifact.ID.String())
			j.logg.Error(rowCtx, "pending artifact cleanup failed", err)
			continue
		}
		deleted++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"max_age":    j.maxAge.String(),
		"candidates": len(rows),
		"deleted":    deleted,
		"failed":     failed,
	})
	j.logg.Info(logCtx, "pending artifact cleanup complete")
	return nil
}

// cleanupArtifact removes the object, the issued URLs and the row. Object
// deletion tolerates a missing object, so a never-used upload URL is fine.
func (j *pendingArtifactCleanupJob) cleanupArtifact(ctx context.Context, artifact *models.Artifact) error {
	var errs error
	if err := j.store.DeleteObject(ctx, artifact.Bucket, artifact.ObjectKey); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("delete object: %w", err))
	}
	if err := j.urls.DeleteForArtifact(ctx, artifact.ID); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("delete access urls: %w", err))
	}
	if errs != nil {
		return errs
	}
	return j.artifacts.Delete(ctx, artifact.ID)
}
