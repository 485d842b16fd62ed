package enums

import "fmt"

// ReadinessStatus is the presentation-level go/no-go verdict.
type ReadinessStatus string

const (
	ReadinessStatusReady       ReadinessStatus = "ready"
	ReadinessStatusHasWarnings ReadinessStatus = "has_warnings"
	ReadinessStatusIncomplete  ReadinessStatus = "incomplete"
	ReadinessStatusError       ReadinessStatus = "error"
)

var validReadinessStatuses = []ReadinessStatus{
	ReadinessStatusReady,
	ReadinessStatusHasWarnings,
	ReadinessStatusIncomplete,
	ReadinessStatusError,
}

// String returns the literal string for the status.
func (s ReadinessStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s ReadinessStatus) IsValid() bool {
	for _, candidate := range validReadinessStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseReadinessStatus converts raw input into a ReadinessStatus.
func ParseReadinessStatus(value string) (ReadinessStatus, error) {
	for _, candidate := range validReadinessStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid readiness status %q", value)
}
