package readiness

import (
	"time"

	"github.com/google/uuid"

	"github.com/slidereel/slidereel-backend/pkg/enums"
)

// Check names reported per slide.
const (
	CheckNarrative         = "narrative"
	CheckEnhancedNarrative = "enhanced_narrative"
	CheckAudio             = "audio"
	CheckAvatarVideo       = "avatar_video"
	CheckImage             = "image"
)

// Check is one per-slide readiness verdict.
type Check struct {
	Name   string            `json:"name"`
	Status enums.CheckStatus `json:"status"`
	Detail string            `json:"detail,omitempty"`
}

// SlideReport groups the checks of one slide.
type SlideReport struct {
	SlideID  uuid.UUID `json:"slide_id"`
	Position int       `json:"position"`
	Checks   []Check   `json:"checks"`
}

// Summary counts check outcomes across all slides, plus the per-kind
// breakdown a caller needs without re-walking the slide reports.
type Summary struct {
	Passed        int `json:"passed"`
	Warnings      int `json:"warnings"`
	Failed        int `json:"failed"`
	NotApplicable int `json:"not_applicable"`

	SlidesMissingNarrative int `json:"slides_missing_narrative"`
	SlidesMissingAudio     int `json:"slides_missing_audio"`
	SlidesMissingVideo     int `json:"slides_missing_video"`
	SlidesMissingImage     int `json:"slides_missing_image"`

	// Slides holding at least one generated-but-unpublished asset.
	SlidesWithUnpublishedAssets int `json:"slides_with_unpublished_assets"`

	// True when narrative, audio, avatar video and image are present on every
	// slide. Unpublished assets keep it true; the enhanced narrative never
	// affects it.
	AllMandatoryChecksPassed bool `json:"all_mandatory_checks_passed"`
}

// Report is the aggregated readiness result for a presentation.
type Report struct {
	PresentationID uuid.UUID             `json:"presentation_id"`
	Overall        enums.ReadinessStatus `json:"overall"`
	Slides         []SlideReport         `json:"slides"`
	Summary        Summary               `json:"summary"`
	CheckedAt      time.Time             `json:"checked_at"`
}

func (r *Report) tally() {
	r.Summary = Summary{AllMandatoryChecksPassed: len(r.Slides) > 0}
	for _, slide := range r.Slides {
		unpublished := false
		for _, check := range slide.Checks {
			switch check.Status {
			case enums.CheckStatusPassed:
				r.Summary.Passed++
			case enums.CheckStatusWarning:
				r.Summary.Warnings++
				if check.Name != CheckEnhancedNarrative {
					unpublished = true
				}
			case enums.CheckStatusFailed:
				r.Summary.Failed++
				switch check.Name {
				case CheckNarrative:
					r.Summary.SlidesMissingNarrative++
				case CheckAudio:
					r.Summary.SlidesMissingAudio++
				case CheckAvatarVideo:
					r.Summary.SlidesMissingVideo++
				case CheckImage:
					r.Summary.SlidesMissingImage++
				}
				if check.Name != CheckEnhancedNarrative {
					r.Summary.AllMandatoryChecksPassed = false
				}
			case enums.CheckStatusNotApplicable:
				r.Summary.NotApplicable++
			}
		}
		if unpublished {
			r.Summary.SlidesWithUnpublishedAssets++
		}
	}

	switch {
	case len(r.Slides) == 0 || r.Summary.Failed > 0:
		r.Overall = enums.ReadinessStatusIncomplete
	case r.Summary.Warnings > 0:
		r.Overall = enums.ReadinessStatusHasWarnings
	default:
		r.Overall = enums.ReadinessStatusReady
	}
}
