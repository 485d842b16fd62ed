package timeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/slidereel/slidereel-backend/pkg/db/models"
	"github.com/slidereel/slidereel-backend/pkg/enums"
	pkgerrors "github.com/slidereel/slidereel-backend/pkg/errors"
	"github.com/slidereel/slidereel-backend/pkg/logger"
)

const (
	// introDuration is the fixed length of the opening phase in seconds.
	introDuration = 8.0

	// defaultChromaColor matches the avatar generator's default backdrop.
	defaultChromaColor = "#F5DEB3"

	chromaThreshold = 12
	chromaHalo      = 50

	defaultLumaURL = "https://templates.shotstack.io/basic/asset/video/luma/arrow-right.mp4"
)

// AssetURLResolver resolves a renderable URL for a published artifact.
// A miss means the artifact is not retrievable and the caller must skip it.
type AssetURLResolver interface {
	ResolveSlideAsset(ctx context.Context, presentationID, slideID uuid.UUID, kind enums.ArtifactKind) (string, bool)
	ResolvePresentationAsset(ctx context.Context, presentationID uuid.UUID, kind enums.ArtifactKind) (string, bool)
}

// slideTiming is the computed placement of one slide on the timeline.
type slideTiming struct {
	slideStart    float64
	avatarStart   float64
	slideDuration float64
	transition    float64
	next          float64
}

// advanceCursor computes the placement of a slide given the running cursor and
// the avatar take's duration. The first slide starts exactly at the cursor
// (end of the intro); later slides start two seconds early so they overlap the
// previous slide's outgoing transition.
func advanceCursor(currentTime, avatarDuration float64, first bool) slideTiming {
	slideStart := currentTime - 2.0
	if first {
		slideStart = currentTime
	}
	slideDuration := avatarDuration + 4.0
	return slideTiming{
		slideStart:    slideStart,
		avatarStart:   currentTime + 1.0,
		slideDuration: slideDuration,
		transition:    slideStart + slideDuration - 2.0,
		next:          slideStart + slideDuration - 1.0,
	}
}

// Composer assembles presentation content into a render timeline.
type Composer struct {
	resolver AssetURLResolver
	logg     *logger.Logger
	lumaURL  string
}

// NewComposer constructs a timeline composer.
func NewComposer(resolver AssetURLResolver, logg *logger.Logger) (*Composer, error) {
	if resolver == nil {
		return nil, fmt.Errorf("asset url resolver required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Composer{resolver: resolver, logg: logg, lumaURL: defaultLumaURL}, nil
}

// BuildTimeline composes the full edit for a presentation. Slides without a
// retrievable avatar video or a positive avatar duration are skipped without
// advancing the time cursor. Slide tracks are appended before the intro
// tracks so slide content renders on top of the intro background.
func (c *Composer) BuildTimeline(ctx context.Context, presentation *models.Presentation, slides []models.Slide) (*Timeline, error) {
	if presentation == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "presentation required")
	}
	ctx = c.logg.WithPresentationID(ctx, presentation.ID.String())

	introURL, ok := c.resolver.ResolvePresentationAsset(ctx, presentation.ID, enums.ArtifactKindIntroVideo)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeFileNotLocated, "intro video not published")
	}

	avatarTrack := Track{}
	slideTrack := Track{}

	currentTime := introDuration
	placed := 0
	var transitionStarts []float64

	for i := range slides {
		slide := &slides[i]
		sctx := c.logg.WithSlideID(ctx, slide.ID.String())

		if slide.AvatarDuration == nil || *slide.AvatarDuration <= 0 {
			c.logg.Warn(sctx, "skipping slide: no usable avatar duration")
			continue
		}
		avatarURL, ok := c.resolver.ResolveSlideAsset(sctx, presentation.ID, slide.ID, enums.ArtifactKindSlideAvatarVideo)
		if !ok {
			c.logg.Warn(sctx, "skipping slide: avatar video not retrievable")
			continue
		}

		timing := advanceCursor(currentTime, *slide.AvatarDuration, placed == 0)

		avatarTrack.Clips = append(avatarTrack.Clips, Clip{
			Asset: Asset{
				Type: "video",
				Src:  avatarURL,
				ChromaKey: &ChromaKey{
					Color:     chromaColorFor(slide),
					Threshold: chromaThreshold,
					Halo:      chromaHalo,
				},
			},
			Start:    timing.avatarStart,
			Length:   *slide.AvatarDuration,
			Fit:      "none",
			Position: "bottomRight",
		})

		if imageURL, ok := c.resolver.ResolveSlideAsset(sctx, presentation.ID, slide.ID, enums.ArtifactKindSlideImage); ok {
			slideTrack.Clips = append(slideTrack.Clips, Clip{
				Asset:      Asset{Type: "image", Src: imageURL},
				Start:      timing.slideStart,
				Length:     timing.slideDuration,
				Fit:        "contain",
				Transition: &Transition{In: "fade", Out: "fade"},
			})
		}

		transitionStarts = append(transitionStarts, timing.transition)
		currentTime = timing.next
		placed++
	}

	if placed == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no renderable slides")
	}

	// The outgoing luma wipe runs between consecutive slides only; the final
	// slide ends without one.
	for i := 0; i < len(transitionStarts)-1; i++ {
		slideTrack.Clips = append(slideTrack.Clips, Clip{
			Asset:  Asset{Type: "luma", Src: c.lumaURL},
			Start:  transitionStarts[i],
			Length: 2,
		})
	}

	timeline := &Timeline{
		Background: "#000000",
		Tracks: append(
			[]Track{avatarTrack, slideTrack},
			c.introTracks(presentation, introURL)...,
		),
	}
	return timeline, nil
}

// introTracks builds the fixed 8-second opening: title, subtitle, lower-third
// bumpers and the intro video with its outgoing luma wipe.
func (c *Composer) introTracks(presentation *models.Presentation, introURL string) []Track {
	titleTrack := Track{Clips: []Clip{{
		Asset:      Asset{Type: "title", Text: presentation.Title, Style: "chunk"},
		Start:      0,
		Length:     7,
		Transition: &Transition{In: "fade", Out: "fade"},
	}}}

	subtitleTrack := Track{}
	if presentation.Subtitle != "" {
		subtitleTrack.Clips = []Clip{{
			Asset:      Asset{Type: "title", Text: presentation.Subtitle, Style: "subtitle"},
			Start:      1,
			Length:     6,
			Position:   "bottom",
			Transition: &Transition{In: "fade", Out: "fade"},
		}}
	}

	lowerThirdIn := Track{Clips: []Clip{{
		Asset:  Asset{Type: "luma", Src: c.lumaURL},
		Start:  0,
		Length: 2,
	}}}
	lowerThirdOut := Track{Clips: []Clip{{
		Asset:  Asset{Type: "luma", Src: c.lumaURL},
		Start:  4,
		Length: 2,
	}}}

	introTrack := Track{Clips: []Clip{
		{
			Asset:  Asset{Type: "video", Src: introURL},
			Start:  0,
			Length: introDuration,
		},
		{
			Asset:  Asset{Type: "luma", Src: c.lumaURL},
			Start:  6,
			Length: 2,
		},
	}}

	tracks := []Track{titleTrack}
	if len(subtitleTrack.Clips) > 0 {
		tracks = append(tracks, subtitleTrack)
	}
	tracks = append(tracks, lowerThirdIn, lowerThirdOut, introTrack)
	return tracks
}

func chromaColorFor(slide *models.Slide) string {
	if slide.AvatarBackground != nil && *slide.AvatarBackground != "" {
		return *slide.AvatarBackground
	}
	return defaultChromaColor
}

// BuildRenderPayload wraps a timeline with the fixed output block.
func BuildRenderPayload(t *Timeline) RenderPayload {
	return RenderPayload{Timeline: *t, Output: DefaultOutput()}
}
