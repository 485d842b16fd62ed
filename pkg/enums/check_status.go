package enums

import "fmt"

// CheckStatus is the outcome of a single per-slide readiness check.
type CheckStatus string

const (
	CheckStatusPassed        CheckStatus = "passed"
	CheckStatusWarning       CheckStatus = "warning"
	CheckStatusFailed        CheckStatus = "failed"
	CheckStatusNotApplicable CheckStatus = "not_applicable"
)

var validCheckStatuses = []CheckStatus{
	CheckStatusPassed,
	CheckStatusWarning,
	CheckStatusFailed,
	CheckStatusNotApplicable,
}

// String returns the literal string for the status.
func (s CheckStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s CheckStatus) IsValid() bool {
	for _, candidate := range validCheckStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCheckStatus converts raw input into a CheckStatus.
func ParseCheckStatus(value string) (CheckStatus, error) {
	for _, candidate := range validCheckStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid check status %q", value)
}
