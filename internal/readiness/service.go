package readiness

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slidereel/slidereel-backend/pkg/cache"
	"github.com/slidereel/slidereel-backend/pkg/config"
	"github.com/slidereel/slidereel-backend/pkg/db/models"
	"github.com/slidereel/slidereel-backend/pkg/enums"
	pkgerrors "github.com/slidereel/slidereel-backend/pkg/errors"
	"github.com/slidereel/slidereel-backend/pkg/logger"
)

type slideSource interface {
	ListSlides(ctx context.Context, presentationID uuid.UUID) ([]models.Slide, error)
	ActiveSpeechRecord(ctx context.Context, slideID uuid.UUID) (*models.SpeechRecord, error)
}

type artifactSource interface {
	FindByScope(ctx context.Context, presentationID uuid.UUID, slideID *uuid.UUID, kind enums.ArtifactKind) (*models.Artifact, error)
}

// CheckOptions tunes one readiness evaluation.
type CheckOptions struct {
	CheckEnhancedNarrative bool
	ForceRefresh           bool
}

// Service aggregates per-slide readiness into a cached report.
type Service interface {
	Check(ctx context.Context, presentationID uuid.UUID, opts CheckOptions) (*Report, error)
	CachedReport(ctx context.Context, presentationID uuid.UUID) (*Report, bool, error)
}

type service struct {
	slides    slideSource
	artifacts artifactSource
	cache     cache.Store
	ttl       time.Duration
	logg      *logger.Logger
	now       func() time.Time
}

// NewService constructs the readiness aggregator.
func NewService(slides slideSource, artifacts artifactSource, store cache.Store, cfg config.ReadinessConfig, logg *logger.Logger) (Service, error) {
	if slides == nil {
		return nil, fmt.Errorf("slide source required")
	}
	if artifacts == nil {
		return nil, fmt.Errorf("artifact source required")
	}
	if store == nil {
		return nil, fmt.Errorf("cache store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		slides:    slides,
		artifacts: artifacts,
		cache:     store,
		ttl:       cfg.CacheTTL,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func cacheKey(presentationID uuid.UUID) string {
	return "sr:readiness:" + presentationID.String()
}

// Check evaluates readiness. ForceRefresh skips the cache read but the fresh
// report is still written back, so subsequent cached reads observe it.
func (s *service) Check(ctx context.Context, presentationID uuid.UUID, opts CheckOptions) (*Report, error) {
	if presentationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "presentation id required")
	}
	ctx = s.logg.WithPresentationID(ctx, presentationID.String())

	if !opts.ForceRefresh {
		if report, ok, err := s.CachedReport(ctx, presentationID); err == nil && ok {
			return report, nil
		}
	}

	report, err := s.evaluate(ctx, presentationID, opts)
	if err != nil {
		return nil, err
	}

	s.writeCache(ctx, report)
	return report, nil
}

// CachedReport returns the last cached report if one is still live.
func (s *service) CachedReport(ctx context.Context, presentationID uuid.UUID) (*Report, bool, error) {
	raw, ok, err := s.cache.Get(ctx, cacheKey(presentationID))
	if err != nil {
		s.logg.Warn(ctx, "readiness cache read failed: "+err.Error())
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		s.logg.Warn(ctx, "readiness cache entry corrupt: "+err.Error())
		return nil, false, nil
	}
	return &report, true, nil
}

func (s *service) writeCache(ctx context.Context, report *Report) {
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(report.PresentationID), raw, s.ttl); err != nil {
		s.logg.Warn(ctx, "readiness cache write failed: "+err.Error())
	}
}

func (s *service) evaluate(ctx context.Context, presentationID uuid.UUID, opts CheckOptions) (*Report, error) {
	slides, err := s.slides.ListSlides(ctx, presentationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list slides")
	}

	report := &Report{
		PresentationID: presentationID,
		Slides:         []SlideReport{},
		CheckedAt:      s.now().UTC(),
	}

	// A presentation with no slides can never be assembled; the fixed empty
	// report is Incomplete by definition.
	if len(slides) == 0 {
		report.Overall = enums.ReadinessStatusIncomplete
		return report, nil
	}

	degraded := false
	for i := range slides {
		slideReport, ok := s.evaluateSlide(ctx, &slides[i], opts)
		if !ok {
			degraded = true
		}
		report.Slides = append(report.Slides, slideReport)
	}

	report.tally()
	if degraded {
		report.Overall = enums.ReadinessStatusError
	}
	return report, nil
}

// evaluateSlide runs the five checks. The returned bool is false when a
// dependency failed mid-evaluation, degrading the overall report to Error.
func (s *service) evaluateSlide(ctx context.Context, slide *models.Slide, opts CheckOptions) (SlideReport, bool) {
	report := SlideReport{SlideID: slide.ID, Position: slide.Position}
	healthy := true

	report.Checks = append(report.Checks, textCheck(CheckNarrative, slide.Narrative, enums.CheckStatusFailed))

	if opts.CheckEnhancedNarrative {
		// Non-mandatory: a missing enhanced narrative degrades to Warning.
		report.Checks = append(report.Checks, textCheck(CheckEnhancedNarrative, slide.EnhancedNarrative, enums.CheckStatusWarning))
	} else {
		report.Checks = append(report.Checks, Check{Name: CheckEnhancedNarrative, Status: enums.CheckStatusNotApplicable})
	}

	speech, err := s.slides.ActiveSpeechRecord(ctx, slide.ID)
	if err != nil {
		healthy = false
		report.Checks = append(report.Checks, Check{Name: CheckAudio, Status: enums.CheckStatusFailed, Detail: "speech record lookup failed"})
	} else {
		check, ok := s.artifactCheck(ctx, CheckAudio, slide, enums.ArtifactKindSlideAudio, speech != nil)
		healthy = healthy && ok
		report.Checks = append(report.Checks, check)
	}

	avatarGenerated := slide.AvatarVideoPath != nil && *slide.AvatarVideoPath != ""
	check, ok := s.artifactCheck(ctx, CheckAvatarVideo, slide, enums.ArtifactKindSlideAvatarVideo, avatarGenerated)
	healthy = healthy && ok
	report.Checks = append(report.Checks, check)

	imageGenerated := slide.ImagePath != nil && *slide.ImagePath != ""
	check, ok = s.artifactCheck(ctx, CheckImage, slide, enums.ArtifactKindSlideImage, imageGenerated)
	healthy = healthy && ok
	report.Checks = append(report.Checks, check)

	return report, healthy
}

// artifactCheck grades a generated artifact: published => Passed, generated
// but unpublished => Warning, never generated => Failed.
func (s *service) artifactCheck(ctx context.Context, name string, slide *models.Slide, kind enums.ArtifactKind, generated bool) (Check, bool) {
	artifact, err := s.artifacts.FindByScope(ctx, slide.PresentationID, &slide.ID, kind)
	if err != nil {
		return Check{Name: name, Status: enums.CheckStatusFailed, Detail: "artifact lookup failed"}, false
	}
	switch {
	case artifact != nil && artifact.IsCompleted():
		return Check{Name: name, Status: enums.CheckStatusPassed}, true
	case generated:
		return Check{Name: name, Status: enums.CheckStatusWarning, Detail: "generated but not published"}, true
	default:
		return Check{Name: name, Status: enums.CheckStatusFailed, Detail: "never generated"}, true
	}
}

func textCheck(name string, value *string, missingStatus enums.CheckStatus) Check {
	if value != nil && *value != "" {
		return Check{Name: name, Status: enums.CheckStatusPassed}
	}
	return Check{Name: name, Status: missingStatus, Detail: "missing"}
}
