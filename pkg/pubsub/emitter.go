package pubsub

import (
	"context"

	"github.com/slidereel/slidereel-backend/pkg/logger"
)

// Emitter publishes lifecycle events best-effort: failures are logged and
// never propagate to the calling operation.
type Emitter struct {
	client *Client
	logg   *logger.Logger
}

// NewEmitter wraps the client. A nil client yields a no-op emitter.
func NewEmitter(client *Client, logg *logger.Logger) *Emitter {
	return &Emitter{client: client, logg: logg}
}

// AssetEvent publishes an asset lifecycle event.
func (e *Emitter) AssetEvent(ctx context.Context, eventType string, event AssetEvent) {
	if e == nil || e.client == nil {
		return
	}
	if err := e.client.PublishJSON(ctx, e.client.AssetEventsPublisher(), eventType, event); err != nil && e.logg != nil {
		e.logg.Warn(ctx, "asset event publish failed: "+err.Error())
	}
}

// RenderEvent publishes a render lifecycle event.
func (e *Emitter) RenderEvent(ctx context.Context, eventType string, event RenderEvent) {
	if e == nil || e.client == nil {
		return
	}
	if err := e.client.PublishJSON(ctx, e.client.RenderEventsPublisher(), eventType, event); err != nil && e.logg != nil {
		e.logg.Warn(ctx, "render event publish failed: "+err.Error())
	}
}
