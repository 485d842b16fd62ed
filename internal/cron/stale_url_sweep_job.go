package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/slidereel/slidereel-backend/pkg/logger"
)

type expiredURLSweeper interface {
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// StaleURLSweepJobParams configure the sweep job.
type StaleURLSweepJobParams struct {
	Logger *logger.Logger
	URLs   expiredURLSweeper
}

// NewStaleURLSweepJob builds the job that deactivates access URLs past their
// expiry. Lookups already treat expired URLs as dead; the sweep keeps the
// active-URL partial index small.
func NewStaleURLSweepJob(params StaleURLSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.URLs == nil {
		return nil, fmt.Errorf("url sweeper required")
	}
	return &staleURLSweepJob{
		logg: params.Logger,
		urls: params.URLs,
		now:  time.Now,
	}, nil
}

type staleURLSweepJob struct {
	logg *logger.Logger
	urls expiredURLSweeper
	now  func() time.Time
}

func (j *staleURLSweepJob) Name() string { return "stale-url-sweep" }

func (j *staleURLSweepJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	deactivated, err := j.urls.DeactivateExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("deactivate expired urls: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"as_of":       now,
		"deactivated": deactivated,
	})
	j.logg.Info(logCtx, "stale url sweep complete")
	return nil
}
