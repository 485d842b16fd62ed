package rendering

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slidereel/slidereel-backend/internal/timeline"
	"github.com/slidereel/slidereel-backend/pkg/config"
	"github.com/slidereel/slidereel-backend/pkg/db/models"
	"github.com/slidereel/slidereel-backend/pkg/enums"
	pkgerrors "github.com/slidereel/slidereel-backend/pkg/errors"
	"github.com/slidereel/slidereel-backend/pkg/logger"
	"github.com/slidereel/slidereel-backend/pkg/metrics"
	"github.com/slidereel/slidereel-backend/pkg/pubsub"
)

type storyRepository interface {
	Create(ctx context.Context, story *models.VideoStory) (*models.VideoStory, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.VideoStory, error)
	LatestByPresentation(ctx context.Context, presentationID uuid.UUID) (*models.VideoStory, error)
	SetProviderJob(ctx context.Context, id uuid.UUID, jobID string, status enums.RenderStatus) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.RenderStatus, outputURL, errorMessage *string) error
	ListUnfinished(ctx context.Context) ([]models.VideoStory, error)
}

type presentationSource interface {
	FindPresentation(ctx context.Context, id uuid.UUID) (*models.Presentation, error)
	ListSlides(ctx context.Context, presentationID uuid.UUID) ([]models.Slide, error)
}

type timelineComposer interface {
	BuildTimeline(ctx context.Context, presentation *models.Presentation, slides []models.Slide) (*timeline.Timeline, error)
}

type providerSource interface {
	Get(name enums.RenderProvider) (Provider, error)
}

type jobWatcher interface {
	Watch(story *models.VideoStory)
	Stop(storyID uuid.UUID)
}

type eventEmitter interface {
	RenderEvent(ctx context.Context, eventType string, event pubsub.RenderEvent)
}

// Service composes video stories and drives their render lifecycle.
type Service interface {
	Compose(ctx context.Context, presentationID uuid.UUID) (*models.VideoStory, error)
	Render(ctx context.Context, storyID uuid.UUID) (*models.VideoStory, error)
	ComposeAndRender(ctx context.Context, presentationID uuid.UUID) (*models.VideoStory, error)
	Status(ctx context.Context, storyID uuid.UUID) (*models.VideoStory, error)
	Cancel(ctx context.Context, storyID uuid.UUID) (*models.VideoStory, error)
	LatestByPresentation(ctx context.Context, presentationID uuid.UUID) (*models.VideoStory, error)
}

type service struct {
	repo          storyRepository
	presentations presentationSource
	composer      timelineComposer
	providers     providerSource
	watcher       jobWatcher
	events        eventEmitter
	renderMetrics *metrics.RenderMetrics
	provider      enums.RenderProvider
	logg          *logger.Logger
}

// NewService constructs the rendering service. Events and metrics may be nil.
func NewService(
	repo storyRepository,
	presentations presentationSource,
	composer timelineComposer,
	providers providerSource,
	watcher jobWatcher,
	events eventEmitter,
	renderMetrics *metrics.RenderMetrics,
	cfg config.RenderConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("story repository required")
	}
	if presentations == nil {
		return nil, fmt.Errorf("presentation source required")
	}
	if composer == nil {
		return nil, fmt.Errorf("timeline composer required")
	}
	if providers == nil {
		return nil, fmt.Errorf("provider source required")
	}
	if watcher == nil {
		return nil, fmt.Errorf("job watcher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	provider, err := enums.ParseRenderProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}
	return &service{
		repo:          repo,
		presentations: presentations,
		composer:      composer,
		providers:     providers,
		watcher:       watcher,
		events:        events,
		renderMetrics: renderMetrics,
		provider:      provider,
		logg:          logg,
	}, nil
}

// Compose builds the timeline for a presentation and stores it as a queued
// video story. The stored timeline is submitted verbatim at render time, so a
// failed render can be retried without recomposing.
func (s *service) Compose(ctx context.Context, presentationID uuid.UUID) (*models.VideoStory, error) {
	if presentationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "presentation id required")
	}
	ctx = s.logg.WithPresentationID(ctx, presentationID.String())

	presentation, err := s.presentations.FindPresentation(ctx, presentationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "presentation not found")
	}
	slides, err := s.presentations.ListSlides(ctx, presentationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list slides")
	}

	composed, err := s.composer.BuildTimeline(ctx, presentation, slides)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(composed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode timeline")
	}

	story := &models.VideoStory{
		ID:             uuid.New(),
		PresentationID: presentationID,
		Provider:       s.provider,
		Timeline:       raw,
		Status:         enums.RenderStatusQueued,
	}
	if _, err := s.repo.Create(ctx, story); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store video story")
	}
	s.logg.Info(ctx, "video story composed")
	return story, nil
}

// Render submits a composed story to its provider and starts watching the job.
func (s *service) Render(ctx context.Context, storyID uuid.UUID) (*models.VideoStory, error) {
	story, err := s.findStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithPresentationID(ctx, story.PresentationID.String())

	if story.ProviderJobID != nil && !story.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "render already in progress")
	}

	var composed timeline.Timeline
	if err := json.Unmarshal(story.Timeline, &composed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode stored timeline")
	}

	provider, err := s.providers.Get(story.Provider)
	if err != nil {
		return nil, err
	}
	jobID, err := provider.SubmitRender(ctx, timeline.BuildRenderPayload(&composed))
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetProviderJob(ctx, story.ID, jobID, enums.RenderStatusQueued); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record provider job")
	}
	story.ProviderJobID = &jobID
	story.Status = enums.RenderStatusQueued

	s.renderMetrics.IncSubmission(story.Provider.String())
	s.emitRenderEvent(ctx, pubsub.EventRenderSubmitted, story)
	s.watcher.Watch(story)

	s.logg.Info(ctx, "render submitted: job "+jobID)
	return story, nil
}

// ComposeAndRender composes a fresh story and immediately submits it.
func (s *service) ComposeAndRender(ctx context.Context, presentationID uuid.UUID) (*models.VideoStory, error) {
	story, err := s.Compose(ctx, presentationID)
	if err != nil {
		return nil, err
	}
	return s.Render(ctx, story.ID)
}

// Status returns the current render state, polling the provider for stories
// that are still in flight so callers see fresh progress between monitor ticks.
func (s *service) Status(ctx context.Context, storyID uuid.UUID) (*models.VideoStory, error) {
	story, err := s.findStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story.Status.IsTerminal() || story.ProviderJobID == nil {
		return story, nil
	}

	provider, err := s.providers.Get(story.Provider)
	if err != nil {
		return nil, err
	}
	job, err := provider.RenderStatus(ctx, *story.ProviderJobID)
	if err != nil {
		s.logg.Warn(ctx, "provider status poll failed: "+err.Error())
		return story, nil
	}
	if job.Status == story.Status {
		return story, nil
	}

	outputURL, errorMessage := outcomeFields(job)
	if err := s.repo.UpdateStatus(ctx, story.ID, job.Status, outputURL, errorMessage); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist render status")
	}
	story.Status = job.Status
	story.OutputURL = outputURL
	story.ErrorMessage = errorMessage
	return story, nil
}

// Cancel stops an in-flight render at the provider and marks the story canceled.
func (s *service) Cancel(ctx context.Context, storyID uuid.UUID) (*models.VideoStory, error) {
	story, err := s.findStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "render already finished")
	}

	if story.ProviderJobID != nil {
		provider, err := s.providers.Get(story.Provider)
		if err != nil {
			return nil, err
		}
		if err := provider.Cancel(ctx, *story.ProviderJobID); err != nil {
			s.logg.Warn(ctx, "provider cancel failed: "+err.Error())
		}
	}
	s.watcher.Stop(story.ID)

	if err := s.repo.UpdateStatus(ctx, story.ID, enums.RenderStatusCanceled, nil, nil); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cancellation")
	}
	story.Status = enums.RenderStatusCanceled

	s.renderMetrics.IncCompletion(story.Provider.String(), story.Status.String())
	s.emitRenderEvent(ctx, pubsub.EventRenderFinished, story)
	return story, nil
}

// LatestByPresentation returns the newest story for a presentation.
func (s *service) LatestByPresentation(ctx context.Context, presentationID uuid.UUID) (*models.VideoStory, error) {
	if presentationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "presentation id required")
	}
	story, err := s.repo.LatestByPresentation(ctx, presentationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup latest video story")
	}
	if story == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no video story composed yet")
	}
	return story, nil
}

func (s *service) findStory(ctx context.Context, storyID uuid.UUID) (*models.VideoStory, error) {
	if storyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "video story id required")
	}
	story, err := s.repo.FindByID(ctx, storyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "video story not found")
	}
	return story, nil
}

func (s *service) emitRenderEvent(ctx context.Context, eventType string, story *models.VideoStory) {
	if s.events == nil {
		return
	}
	event := pubsub.RenderEvent{
		VideoStoryID:   story.ID.String(),
		PresentationID: story.PresentationID.String(),
		Provider:       story.Provider.String(),
		Status:         story.Status.String(),
		OccurredAt:     time.Now().UTC(),
	}
	if story.ProviderJobID != nil {
		event.ProviderJobID = *story.ProviderJobID
	}
	if story.OutputURL != nil {
		event.OutputURL = *story.OutputURL
	}
	if story.ErrorMessage != nil {
		event.ErrorMessage = *story.ErrorMessage
	}
	s.events.RenderEvent(ctx, eventType, event)
}

func outcomeFields(job *JobStatus) (outputURL, errorMessage *string) {
	if job.OutputURL != "" {
		outputURL = &job.OutputURL
	}
	if job.ErrorMessage != "" {
		errorMessage = &job.ErrorMessage
	}
	return outputURL, errorMessage
}
