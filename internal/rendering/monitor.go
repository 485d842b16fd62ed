package rendering

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slidereel/slidereel-backend/pkg/config"
	"github.com/slidereel/slidereel-backend/pkg/db/models"
	"github.com/slidereel/slidereel-backend/pkg/enums"
	"github.com/slidereel/slidereel-backend/pkg/logger"
	"github.com/slidereel/slidereel-backend/pkg/metrics"
	"github.com/slidereel/slidereel-backend/pkg/pubsub"
)

type storyUpdater interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.RenderStatus, outputURL, errorMessage *string) error
	ListUnfinished(ctx context.Context) ([]models.VideoStory, error)
}

// Monitor polls in-flight render jobs until they reach a terminal status.
// Each watched story gets its own goroutine; watchers survive the request
// that submitted the render and are torn down on Close.
type Monitor struct {
	repo          storyUpdater
	providers     providerSource
	events        eventEmitter
	renderMetrics *metrics.RenderMetrics
	logg          *logger.Logger
	interval      time.Duration
	timeout       time.Duration

	mu       sync.Mutex
	watchers map[uuid.UUID]context.CancelFunc
	wg       sync.WaitGroup
}

// NewMonitor constructs the render job monitor. Events and metrics may be nil.
func NewMonitor(repo storyUpdater, providers providerSource, events eventEmitter, renderMetrics *metrics.RenderMetrics, cfg config.RenderConfig, logg *logger.Logger) *Monitor {
	return &Monitor{
		repo:          repo,
		providers:     providers,
		events:        events,
		renderMetrics: renderMetrics,
		logg:          logg,
		interval:      cfg.PollInterval,
		timeout:       cfg.PollTimeout,
		watchers:      map[uuid.UUID]context.CancelFunc{},
	}
}

// Watch starts polling a submitted story. Watching the same story twice
// replaces the previous watcher.
func (m *Monitor) Watch(story *models.VideoStory) {
	if story == nil || story.ProviderJobID == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	m.mu.Lock()
	if previous, ok := m.watchers[story.ID]; ok {
		previous()
	}
	m.watchers[story.ID] = cancel
	m.mu.Unlock()

	watched := *story
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.remove(watched.ID)
		m.poll(ctx, &watched)
	}()
}

// Stop cancels the watcher for a story, if one is running.
func (m *Monitor) Stop(storyID uuid.UUID) {
	m.mu.Lock()
	cancel, ok := m.watchers[storyID]
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

// Resume re-watches stories that were in flight when the process last
// stopped. Call once at startup.
func (m *Monitor) Resume(ctx context.Context) error {
	stories, err := m.repo.ListUnfinished(ctx)
	if err != nil {
		return err
	}
	for i := range stories {
		m.Watch(&stories[i])
	}
	if len(stories) > 0 {
		m.logg.Info(ctx, "resumed render watchers")
	}
	return nil
}

// Close stops all watchers and waits for them to exit.
func (m *Monitor) Close() {
	m.mu.Lock()
	for _, cancel := range m.watchers {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Monitor) remove(storyID uuid.UUID) {
	m.mu.Lock()
	if cancel, ok := m.watchers[storyID]; ok {
		cancel()
		delete(m.watchers, storyID)
	}
	m.mu.Unlock()
}

func (m *Monitor) poll(ctx context.Context, story *models.VideoStory) {
	ctx = m.logg.WithPresentationID(ctx, story.PresentationID.String())

	provider, err := m.providers.Get(story.Provider)
	if err != nil {
		m.logg.Error(ctx, "cannot watch render", err)
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	lastStatus := story.Status
	for {
		select {
		case <-ctx.Done():
			// A canceled watcher was stopped deliberately; only the deadline
			// marks the story failed.
			if ctx.Err() == context.DeadlineExceeded {
				m.finish(story, enums.RenderStatusFailed, nil, strPtr("render polling timed out"))
			}
			return
		case <-ticker.C:
		}

		job, err := provider.RenderStatus(ctx, *story.ProviderJobID)
		if err != nil {
			m.logg.Warn(ctx, "render status poll failed: "+err.Error())
			continue
		}

		if job.Status.IsTerminal() {
			outputURL, errorMessage := outcomeFields(job)
			m.finish(story, job.Status, outputURL, errorMessage)
			return
		}
		if job.Status != lastStatus {
			lastStatus = job.Status
			if err := m.repo.UpdateStatus(ctx, story.ID, job.Status, nil, nil); err != nil {
				m.logg.Warn(ctx, "persist render progress failed: "+err.Error())
			}
		}
	}
}

// finish persists the terminal outcome and emits the completion signals. It
// uses a fresh context so a timed-out watcher can still record its failure.
func (m *Monitor) finish(story *models.VideoStory, status enums.RenderStatus, outputURL, errorMessage *string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ctx = m.logg.WithPresentationID(ctx, story.PresentationID.String())

	if err := m.repo.UpdateStatus(ctx, story.ID, status, outputURL, errorMessage); err != nil {
		m.logg.Error(ctx, "persist terminal render status failed", err)
	}
	story.Status = status
	story.OutputURL = outputURL
	story.ErrorMessage = errorMessage

	m.renderMetrics.IncCompletion(story.Provider.String(), status.String())
	m.renderMetrics.ObserveRender(story.Provider.String(), time.Since(story.CreatedAt))

	if m.events != nil {
		event := pubsub.RenderEvent{
			VideoStoryID:   story.ID.String(),
			PresentationID: story.PresentationID.String(),
			Provider:       story.Provider.String(),
			Status:         status.String(),
			OccurredAt:     time.Now().UTC(),
		}
		if story.ProviderJobID != nil {
			event.ProviderJobID = *story.ProviderJobID
		}
		if outputURL != nil {
			event.OutputURL = *outputURL
		}
		if errorMessage != nil {
			event.ErrorMessage = *errorMessage
		}
		m.events.RenderEvent(ctx, pubsub.EventRenderFinished, event)
	}
	m.logg.Info(ctx, "render finished: "+status.String())
}

func strPtr(v string) *string { return &v }
