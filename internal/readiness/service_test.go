package readiness

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidereel/slidereel-backend/pkg/cache"
	"github.com/slidereel/slidereel-backend/pkg/config"
	"github.com/slidereel/slidereel-backend/pkg/db/models"
	"github.com/slidereel/slidereel-backend/pkg/enums"
	"github.com/slidereel/slidereel-backend/pkg/logger"
)

type stubSlides struct {
	slides   []models.Slide
	speeches map[uuid.UUID]*models.SpeechRecord
	calls    int
}

func (s *stubSlides) ListSlides(context.Context, uuid.UUID) ([]models.Slide, error) {
	s.calls++
	return s.slides, nil
}

func (s *stubSlides) ActiveSpeechRecord(_ context.Context, slideID uuid.UUID) (*models.SpeechRecord, error) {
	return s.speeches[slideID], nil
}

type stubArtifacts struct {
	published map[string]bool // "slideID/kind" -> completed artifact exists
}

func (s *stubArtifacts) FindByScope(_ context.Context, presentationID uuid.UUID, slideID *uuid.UUID, kind enums.ArtifactKind) (*models.Artifact, error) {
	if slideID == nil || !s.published[slideID.String()+"/"+kind.String()] {
		return nil, nil
	}
	return &models.Artifact{
		ID:             uuid.New(),
		PresentationID: presentationID,
		SlideID:        slideID,
		Kind:           kind,
		UploadStatus:   enums.UploadStatusCompleted,
	}, nil
}

func strPtr(v string) *string { return &v }

func newReadinessService(t *testing.T, slides *stubSlides, artifacts *stubArtifacts, store cache.Store) *service {
	t.Helper()
	if store == nil {
		store = cache.NewMemory()
	}
	svc, err := NewService(slides, artifacts, store,
		config.ReadinessConfig{CacheTTL: 5 * time.Minute},
		logger.New(logger.Options{ServiceName: "readiness-test", Output: io.Discard}))
	require.NoError(t, err)
	return svc.(*service)
}

func checkStatus(t *testing.T, report SlideReport, name string) enums.CheckStatus {
	t.Helper()
	for _, check := range report.Checks {
		if check.Name == name {
			return check.Status
		}
	}
	t.Fatalf("check %q not found", name)
	return ""
}

func TestCheckZeroSlidesYieldsEmptyIncomplete(t *testing.T) {
	svc := newReadinessService(t, &stubSlides{}, &stubArtifacts{}, nil)

	report, err := svc.Check(context.Background(), uuid.New(), CheckOptions{})
	require.NoError(t, err)

	assert.Equal(t, enums.ReadinessStatusIncomplete, report.Overall)
	assert.Empty(t, report.Slides)
	assert.Equal(t, Summary{}, report.Summary)
	assert.False(t, report.CheckedAt.IsZero())
}

func TestCheckGradesPublishedGeneratedAndMissing(t *testing.T) {
	presentationID := uuid.New()
	slideID := uuid.New()
	slide := models.Slide{
		ID:              slideID,
		PresentationID:  presentationID,
		Position:        0,
		Narrative:       strPtr("welcome"),
		ImagePath:       strPtr("/img/slide0.png"), // generated, unpublished
		AvatarVideoPath: nil,                       // never generated
	}
	slides := &stubSlides{
		slides:   []models.Slide{slide},
		speeches: map[uuid.UUID]*models.SpeechRecord{slideID: {ID: uuid.New(), SlideID: slideID}},
	}
	artifacts := &stubArtifacts{published: map[string]bool{
		slideID.String() + "/slide_audio": true, // published
	}}

	svc := newReadinessService(t, slides, artifacts, nil)

	report, err := svc.Check(context.Background(), presentationID, CheckOptions{})
	require.NoError(t, err)
	require.Len(t, report.Slides, 1)

	slideReport := report.Slides[0]
	assert.Equal(t, enums.CheckStatusPassed, checkStatus(t, slideReport, CheckNarrative))
	assert.Equal(t, enums.CheckStatusNotApplicable, checkStatus(t, slideReport, CheckEnhancedNarrative))
	assert.Equal(t, enums.CheckStatusPassed, checkStatus(t, slideReport, CheckAudio))
	assert.Equal(t, enums.CheckStatusWarning, checkStatus(t, slideReport, CheckImage))
	assert.Equal(t, enums.CheckStatusFailed, checkStatus(t, slideReport, CheckAvatarVideo))

	assert.Equal(t, Summary{
		Passed:                      2,
		Warnings:                    1,
		Failed:                      1,
		NotApplicable:               1,
		SlidesMissingVideo:          1,
		SlidesWithUnpublishedAssets: 1,
	}, report.Summary)
	assert.False(t, report.Summary.AllMandatoryChecksPassed)
	assert.Equal(t, enums.ReadinessStatusIncomplete, report.Overall)
}

func TestCheckSummaryCountsSlidesMissingVideo(t *testing.T) {
	presentationID := uuid.New()
	published := map[string]bool{}
	speeches := map[uuid.UUID]*models.SpeechRecord{}
	var testSlides []models.Slide
	for position := 0; position < 3; position++ {
		slideID := uuid.New()
		slide := models.Slide{
			ID:             slideID,
			PresentationID: presentationID,
			Position:       position,
			Narrative:      strPtr("text"),
			ImagePath:      strPtr("/img.png"),
		}
		if position != 1 {
			slide.AvatarVideoPath = strPtr("/avatar.mp4")
			published[slideID.String()+"/slide_avatar_video"] = true
		}
		published[slideID.String()+"/slide_audio"] = true
		published[slideID.String()+"/slide_image"] = true
		speeches[slideID] = &models.SpeechRecord{ID: uuid.New(), SlideID: slideID}
		testSlides = append(testSlides, slide)
	}

	svc := newReadinessService(t, &stubSlides{slides: testSlides, speeches: speeches}, &stubArtifacts{published: published}, nil)

	report, err := svc.Check(context.Background(), presentationID, CheckOptions{})
	require.NoError(t, err)

	assert.Equal(t, enums.ReadinessStatusIncomplete, report.Overall)
	assert.Equal(t, 1, report.Summary.SlidesMissingVideo)
	assert.Zero(t, report.Summary.SlidesMissingAudio)
	assert.Zero(t, report.Summary.SlidesMissingImage)
	assert.Zero(t, report.Summary.SlidesMissingNarrative)
	assert.False(t, report.Summary.AllMandatoryChecksPassed)
	assert.Equal(t, enums.CheckStatusFailed, checkStatus(t, report.Slides[1], CheckAvatarVideo))
	assert.Equal(t, enums.CheckStatusPassed, checkStatus(t, report.Slides[0], CheckAvatarVideo))
	assert.Equal(t, enums.CheckStatusPassed, checkStatus(t, report.Slides[2], CheckAvatarVideo))
}

func TestCheckEnhancedNarrativeIsNonMandatory(t *testing.T) {
	presentationID := uuid.New()
	slideID := uuid.New()
	slide := models.Slide{
		ID:              slideID,
		PresentationID:  presentationID,
		Narrative:       strPtr("text"),
		ImagePath:       strPtr("/img.png"),
		AvatarVideoPath: strPtr("/avatar.mp4"),
	}
	slides := &stubSlides{
		slides:   []models.Slide{slide},
		speeches: map[uuid.UUID]*models.SpeechRecord{slideID: {ID: uuid.New(), SlideID: slideID}},
	}
	artifacts := &stubArtifacts{published: map[string]bool{
		slideID.String() + "/slide_audio":        true,
		slideID.String() + "/slide_image":        true,
		slideID.String() + "/slide_avatar_video": true,
	}}

	svc := newReadinessService(t, slides, artifacts, nil)

	report, err := svc.Check(context.Background(), presentationID, CheckOptions{CheckEnhancedNarrative: true})
	require.NoError(t, err)

	assert.Equal(t, enums.CheckStatusWarning, checkStatus(t, report.Slides[0], CheckEnhancedNarrative))
	assert.Equal(t, enums.ReadinessStatusHasWarnings, report.Overall,
		"a missing enhanced narrative must never make the presentation Incomplete")
}

func TestCheckAllPassedIsReady(t *testing.T) {
	presentationID := uuid.New()
	slideID := uuid.New()
	slide := models.Slide{
		ID:                slideID,
		PresentationID:    presentationID,
		Narrative:         strPtr("text"),
		EnhancedNarrative: strPtr("richer text"),
		ImagePath:         strPtr("/img.png"),
		AvatarVideoPath:   strPtr("/avatar.mp4"),
	}
	slides := &stubSlides{
		slides:   []models.Slide{slide},
		speeches: map[uuid.UUID]*models.SpeechRecord{slideID: {ID: uuid.New(), SlideID: slideID}},
	}
	artifacts := &stubArtifacts{published: map[string]bool{
		slideID.String() + "/slide_audio":        true,
		slideID.String() + "/slide_image":        true,
		slideID.String() + "/slide_avatar_video": true,
	}}

	svc := newReadinessService(t, slides, artifacts, nil)

	report, err := svc.Check(context.Background(), presentationID, CheckOptions{CheckEnhancedNarrative: true})
	require.NoError(t, err)
	assert.Equal(t, enums.ReadinessStatusReady, report.Overall)
	assert.Zero(t, report.Summary.Failed)
	assert.Zero(t, report.Summary.Warnings)
	assert.True(t, report.Summary.AllMandatoryChecksPassed)
}

func TestCheckServesCachedReportWithinTTL(t *testing.T) {
	slides := &stubSlides{}
	svc := newReadinessService(t, slides, &stubArtifacts{}, nil)
	presentationID := uuid.New()

	first, err := svc.Check(context.Background(), presentationID, CheckOptions{})
	require.NoError(t, err)

	second, err := svc.Check(context.Background(), presentationID, CheckOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, slides.calls, "second call must be served from cache")
	assert.Equal(t, first.CheckedAt.Unix(), second.CheckedAt.Unix())
}

func TestCheckForceRefreshBypassesReadStillWrites(t *testing.T) {
	now := time.Now()
	store := cache.NewMemoryWithClock(func() time.Time { return now })
	slides := &stubSlides{}
	svc := newReadinessService(t, slides, &stubArtifacts{}, store)
	presentationID := uuid.New()

	_, err := svc.Check(context.Background(), presentationID, CheckOptions{})
	require.NoError(t, err)
	_, err = svc.Check(context.Background(), presentationID, CheckOptions{ForceRefresh: true})
	require.NoError(t, err)

	assert.Equal(t, 2, slides.calls, "force refresh must re-evaluate")

	// The forced result was written back: a third cached read needs no re-evaluation.
	_, err = svc.Check(context.Background(), presentationID, CheckOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, slides.calls)
}

func TestCachedReportExpiresWithTTL(t *testing.T) {
	now := time.Now()
	store := cache.NewMemoryWithClock(func() time.Time { return now })
	slides := &stubSlides{}
	svc := newReadinessService(t, slides, &stubArtifacts{}, store)
	presentationID := uuid.New()

	_, err := svc.Check(context.Background(), presentationID, CheckOptions{})
	require.NoError(t, err)

	now = now.Add(6 * time.Minute)

	_, ok, err := svc.CachedReport(context.Background(), presentationID)
	require.NoError(t, err)
	assert.False(t, ok, "report past TTL must not be served")

	_, err = svc.Check(context.Background(), presentationID, CheckOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, slides.calls)
}
