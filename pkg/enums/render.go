package enums

import "fmt"

// RenderProvider identifies a configured rendering backend.
type RenderProvider string

const (
	RenderProviderShotstack RenderProvider = "shotstack"
)

var validRenderProviders = []RenderProvider{RenderProviderShotstack}

// String returns the literal string for the provider.
func (p RenderProvider) String() string {
	return string(p)
}

// IsValid reports whether the provider is known.
func (p RenderProvider) IsValid() bool {
	for _, candidate := range validRenderProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseRenderProvider converts raw input into a RenderProvider.
func ParseRenderProvider(value string) (RenderProvider, error) {
	for _, candidate := range validRenderProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid render provider %q", value)
}

// RenderStatus tracks a video story render job.
type RenderStatus string

const (
	RenderStatusQueued    RenderStatus = "queued"
	RenderStatusRendering RenderStatus = "rendering"
	RenderStatusDone      RenderStatus = "done"
	RenderStatusFailed    RenderStatus = "failed"
	RenderStatusCanceled  RenderStatus = "canceled"
)

var validRenderStatuses = []RenderStatus{
	RenderStatusQueued,
	RenderStatusRendering,
	RenderStatusDone,
	RenderStatusFailed,
	RenderStatusCanceled,
}

// String returns the literal string for the status.
func (s RenderStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s RenderStatus) IsValid() bool {
	for _, candidate := range validRenderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the render reached a final state.
func (s RenderStatus) IsTerminal() bool {
	return s == RenderStatusDone || s == RenderStatusFailed || s == RenderStatusCanceled
}

// ParseRenderStatus converts raw input into a RenderStatus.
func ParseRenderStatus(value string) (RenderStatus, error) {
	for _, candidate := range validRenderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid render status %q", value)
}
