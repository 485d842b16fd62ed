package rendering

import (
	"context"
	"fmt"

	"github.com/slidereel/slidereel-backend/internal/timeline"
	"github.com/slidereel/slidereel-backend/pkg/enums"
	pkgerrors "github.com/slidereel/slidereel-backend/pkg/errors"
)

// JobStatus is a provider's view of one render job.
type JobStatus struct {
	Status       enums.RenderStatus
	OutputURL    string
	ErrorMessage string
}

// Provider is a rendering backend. IngestAsset re-hosts a source file on the
// provider so timelines can reference provider-local URLs.
type Provider interface {
	SubmitRender(ctx context.Context, payload timeline.RenderPayload) (string, error)
	RenderStatus(ctx context.Context, jobID string) (*JobStatus, error)
	Cancel(ctx context.Context, jobID string) error
	IngestAsset(ctx context.Context, sourceURL string) (string, error)
}

// Registry holds the configured providers keyed by name.
type Registry struct {
	providers map[enums.RenderProvider]Provider
}

// NewRegistry builds a registry from the given providers.
func NewRegistry() *Registry {
	return &Registry{providers: map[enums.RenderProvider]Provider{}}
}

// Register adds a provider. Registering the same name twice is a programming
// error and fails loudly.
func (r *Registry) Register(name enums.RenderProvider, provider Provider) error {
	if !name.IsValid() {
		return fmt.Errorf("invalid render provider %q", name)
	}
	if provider == nil {
		return fmt.Errorf("provider %q is nil", name)
	}
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}
	r.providers[name] = provider
	return nil
}

// Get returns the provider for name.
func (r *Registry) Get(name enums.RenderProvider) (Provider, error) {
	provider, ok := r.providers[name]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("render provider %q not configured", name))
	}
	return provider, nil
}
