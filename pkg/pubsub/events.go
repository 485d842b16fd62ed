package pubsub

import "time"

// Event type attribute values carried on published messages.
const (
	EventAssetPublished   = "asset.published"
	EventAssetRepublished = "asset.republished"
	EventAssetDeleted     = "asset.deleted"
	EventRenderSubmitted  = "render.submitted"
	EventRenderFinished   = "render.finished"
)

// AssetEvent describes a change to a published artifact.
type AssetEvent struct {
	ArtifactID     string    `json:"artifact_id"`
	PresentationID string    `json:"presentation_id"`
	SlideID        string    `json:"slide_id,omitempty"`
	Kind           string    `json:"kind"`
	Bucket         string    `json:"bucket,omitempty"`
	ObjectKey      string    `json:"object_key,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// RenderEvent describes a render job lifecycle transition.
type RenderEvent struct {
	VideoStoryID   string    `json:"video_story_id"`
	PresentationID string    `json:"presentation_id"`
	Provider       string    `json:"provider"`
	ProviderJobID  string    `json:"provider_job_id,omitempty"`
	Status         string    `json:"status"`
	OutputURL      string    `json:"output_url,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
