package rendering

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidereel/slidereel-backend/internal/timeline"
	"github.com/slidereel/slidereel-backend/pkg/config"
	"github.com/slidereel/slidereel-backend/pkg/db/models"
	"github.com/slidereel/slidereel-backend/pkg/enums"
	pkgerrors "github.com/slidereel/slidereel-backend/pkg/errors"
	"github.com/slidereel/slidereel-backend/pkg/logger"
	"github.com/slidereel/slidereel-backend/pkg/pubsub"
)

type stubStoryRepo struct {
	stories map[uuid.UUID]*models.VideoStory
	created int
}

func newStubStoryRepo() *stubStoryRepo {
	return &stubStoryRepo{stories: map[uuid.UUID]*models.VideoStory{}}
}

func (s *stubStoryRepo) Create(_ context.Context, story *models.VideoStory) (*models.VideoStory, error) {
	s.created++
	s.stories[story.ID] = story
	return story, nil
}

func (s *stubStoryRepo) FindByID(_ context.Context, id uuid.UUID) (*models.VideoStory, error) {
	story, ok := s.stories[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	copied := *story
	return &copied, nil
}

func (s *stubStoryRepo) LatestByPresentation(_ context.Context, presentationID uuid.UUID) (*models.VideoStory, error) {
	var latest *models.VideoStory
	for _, story := range s.stories {
		if story.PresentationID == presentationID {
			latest = story
		}
	}
	return latest, nil
}

func (s *stubStoryRepo) SetProviderJob(_ context.Context, id uuid.UUID, jobID string, status enums.RenderStatus) error {
	story := s.stories[id]
	story.ProviderJobID = &jobID
	story.Status = status
	return nil
}

func (s *stubStoryRepo) UpdateStatus(_ context.Context, id uuid.UUID, status enums.RenderStatus, outputURL, errorMessage *string) error {
	story := s.stories[id]
	story.Status = status
	if outputURL != nil {
		story.OutputURL = outputURL
	}
	if errorMessage != nil {
		story.ErrorMessage = errorMessage
	}
	return nil
}

func (s *stubStoryRepo) ListUnfinished(context.Context) ([]models.VideoStory, error) {
	var unfinished []models.VideoStory
	for _, story := range s.stories {
		if !story.Status.IsTerminal() && story.ProviderJobID != nil {
			unfinished = append(unfinished, *story)
		}
	}
	return unfinished, nil
}

type stubPresentations struct {
	presentation *models.Presentation
	slides       []models.Slide
}

func (s *stubPresentations) FindPresentation(context.Context, uuid.UUID) (*models.Presentation, error) {
	if s.presentation == nil {
		return nil, errors.New("record not found")
	}
	return s.presentation, nil
}

func (s *stubPresentations) ListSlides(context.Context, uuid.UUID) ([]models.Slide, error) {
	return s.slides, nil
}

type stubComposer struct {
	timeline *timeline.Timeline
	err      error
}

func (s *stubComposer) BuildTimeline(context.Context, *models.Presentation, []models.Slide) (*timeline.Timeline, error) {
	return s.timeline, s.err
}

type stubProvider struct {
	jobID      string
	submitErr  error
	status     *JobStatus
	statusErr  error
	cancelErr  error
	submits    int
	cancels    int
	statusReqs int
}

func (s *stubProvider) SubmitRender(context.Context, timeline.RenderPayload) (string, error) {
	s.submits++
	return s.jobID, s.submitErr
}

func (s *stubProvider) RenderStatus(context.Context, string) (*JobStatus, error) {
	s.statusReqs++
	return s.status, s.statusErr
}

func (s *stubProvider) Cancel(context.Context, string) error {
	s.cancels++
	return s.cancelErr
}

func (s *stubProvider) IngestAsset(context.Context, string) (string, error) {
	return "", errors.New("not implemented")
}

type stubWatcher struct {
	watched []uuid.UUID
	stopped []uuid.UUID
}

func (s *stubWatcher) Watch(story *models.VideoStory) { s.watched = append(s.watched, story.ID) }
func (s *stubWatcher) Stop(storyID uuid.UUID)         { s.stopped = append(s.stopped, storyID) }

type stubRenderEmitter struct {
	events []string
	last   pubsub.RenderEvent
}

func (s *stubRenderEmitter) RenderEvent(_ context.Context, eventType string, event pubsub.RenderEvent) {
	s.events = append(s.events, eventType)
	s.last = event
}

type renderFixture struct {
	repo     *stubStoryRepo
	provider *stubProvider
	watcher  *stubWatcher
	emitter  *stubRenderEmitter
	svc      Service
}

func newRenderFixture(t *testing.T) *renderFixture {
	t.Helper()
	repo := newStubStoryRepo()
	provider := &stubProvider{jobID: "job-123"}
	watcher := &stubWatcher{}
	emitter := &stubRenderEmitter{}

	registry := NewRegistry()
	require.NoError(t, registry.Register(enums.RenderProviderShotstack, provider))

	composed := &timeline.Timeline{Tracks: []timeline.Track{{Clips: []timeline.Clip{{
		Asset: timeline.Asset{Type: "video", Src: "https://cdn.example/avatar.mp4"},
		Start: 9, Length: 30,
	}}}}}

	svc, err := NewService(
		repo,
		&stubPresentations{presentation: &models.Presentation{ID: uuid.New(), Title: "T"}},
		&stubComposer{timeline: composed},
		registry,
		watcher,
		emitter,
		nil,
		config.RenderConfig{Provider: "shotstack"},
		logger.New(logger.Options{ServiceName: "rendering-test", Output: io.Discard}),
	)
	require.NoError(t, err)
	return &renderFixture{repo: repo, provider: provider, watcher: watcher, emitter: emitter, svc: svc}
}

func TestComposeStoresQueuedStoryWithTimeline(t *testing.T) {
	f := newRenderFixture(t)

	story, err := f.svc.Compose(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, enums.RenderStatusQueued, story.Status)
	assert.Equal(t, enums.RenderProviderShotstack, story.Provider)
	assert.Nil(t, story.ProviderJobID)
	assert.Equal(t, 1, f.repo.created)

	var stored timeline.Timeline
	require.NoError(t, json.Unmarshal(story.Timeline, &stored))
	require.Len(t, stored.Tracks, 1)
	assert.Equal(t, "https://cdn.example/avatar.mp4", stored.Tracks[0].Clips[0].Asset.Src)
}

func TestRenderSubmitsAndStartsWatcher(t *testing.T) {
	f := newRenderFixture(t)
	story, err := f.svc.Compose(context.Background(), uuid.New())
	require.NoError(t, err)

	rendered, err := f.svc.Render(context.Background(), story.ID)
	require.NoError(t, err)

	require.NotNil(t, rendered.ProviderJobID)
	assert.Equal(t, "job-123", *rendered.ProviderJobID)
	assert.Equal(t, 1, f.provider.submits)
	assert.Equal(t, []uuid.UUID{story.ID}, f.watcher.watched)
	assert.Equal(t, []string{pubsub.EventRenderSubmitted}, f.emitter.events)
	assert.Equal(t, "job-123", f.emitter.last.ProviderJobID)
}

func TestRenderRejectsStoryAlreadyInFlight(t *testing.T) {
	f := newRenderFixture(t)
	story, err := f.svc.Compose(context.Background(), uuid.New())
	require.NoError(t, err)
	_, err = f.svc.Render(context.Background(), story.ID)
	require.NoError(t, err)

	_, err = f.svc.Render(context.Background(), story.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, 1, f.provider.submits)
}

func TestStatusPollsProviderForInFlightRenders(t *testing.T) {
	f := newRenderFixture(t)
	story, err := f.svc.Compose(context.Background(), uuid.New())
	require.NoError(t, err)
	_, err = f.svc.Render(context.Background(), story.ID)
	require.NoError(t, err)

	f.provider.status = &JobStatus{Status: enums.RenderStatusDone, OutputURL: "https://cdn.shotstack.io/out.mp4"}

	refreshed, err := f.svc.Status(context.Background(), story.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RenderStatusDone, refreshed.Status)
	require.NotNil(t, refreshed.OutputURL)
	assert.Equal(t, "https://cdn.shotstack.io/out.mp4", *refreshed.OutputURL)

	// Terminal stories are served from storage without another poll.
	_, err = f.svc.Status(context.Background(), story.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.provider.statusReqs)
}

func TestStatusSurvivesProviderOutage(t *testing.T) {
	f := newRenderFixture(t)
	story, err := f.svc.Compose(context.Background(), uuid.New())
	require.NoError(t, err)
	_, err = f.svc.Render(context.Background(), story.ID)
	require.NoError(t, err)

	f.provider.statusErr = errors.New("gateway timeout")

	refreshed, err := f.svc.Status(context.Background(), story.ID)
	require.NoError(t, err, "a poll failure must not fail the status read")
	assert.Equal(t, enums.RenderStatusQueued, refreshed.Status)
}

func TestCancelStopsWatcherAndMarksCanceled(t *testing.T) {
	f := newRenderFixture(t)
	story, err := f.svc.Compose(context.Background(), uuid.New())
	require.NoError(t, err)
	_, err = f.svc.Render(context.Background(), story.ID)
	require.NoError(t, err)
	f.emitter.events = nil

	canceled, err := f.svc.Cancel(context.Background(), story.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.RenderStatusCanceled, canceled.Status)
	assert.Equal(t, 1, f.provider.cancels)
	assert.Equal(t, []uuid.UUID{story.ID}, f.watcher.stopped)
	assert.Equal(t, []string{pubsub.EventRenderFinished}, f.emitter.events)

	_, err = f.svc.Cancel(context.Background(), story.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestComposeFailsWhenTimelineCannotBeBuilt(t *testing.T) {
	f := newRenderFixture(t)
	svc, err := NewService(
		f.repo,
		&stubPresentations{presentation: &models.Presentation{ID: uuid.New()}},
		&stubComposer{err: pkgerrors.New(pkgerrors.CodeValidation, "no renderable slides")},
		NewRegistry(),
		f.watcher,
		nil,
		nil,
		config.RenderConfig{Provider: "shotstack"},
		logger.New(logger.Options{ServiceName: "rendering-test", Output: io.Discard}),
	)
	require.NoError(t, err)

	_, err = svc.Compose(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, f.repo.created)
}

func TestLatestByPresentation(t *testing.T) {
	f := newRenderFixture(t)
	presentationID := uuid.New()

	_, err := f.svc.LatestByPresentation(context.Background(), presentationID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	story, err := f.svc.Compose(context.Background(), presentationID)
	require.NoError(t, err)

	latest, err := f.svc.LatestByPresentation(context.Background(), presentationID)
	require.NoError(t, err)
	assert.Equal(t, story.ID, latest.ID)
}
