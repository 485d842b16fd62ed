package enums

import "fmt"

// ArtifactKind identifies which generated presentation artifact a stored object holds.
type ArtifactKind string

const (
	ArtifactKindSlideImage       ArtifactKind = "slide_image"
	ArtifactKindSlideAudio       ArtifactKind = "slide_audio"
	ArtifactKindSlideAvatarVideo ArtifactKind = "slide_avatar_video"
	ArtifactKindIntroVideo       ArtifactKind = "presentation_intro_video"
	ArtifactKindFullVideo        ArtifactKind = "presentation_full_video"
)

var validArtifactKinds = []ArtifactKind{
	ArtifactKindSlideImage,
	ArtifactKindSlideAudio,
	ArtifactKindSlideAvatarVideo,
	ArtifactKindIntroVideo,
	ArtifactKindFullVideo,
}

// String returns the literal string for the kind.
func (k ArtifactKind) String() string {
	return string(k)
}

// IsValid reports whether the kind is known.
func (k ArtifactKind) IsValid() bool {
	for _, candidate := range validArtifactKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// IsSlideScoped reports whether artifacts of this kind belong to a single slide.
func (k ArtifactKind) IsSlideScoped() bool {
	switch k {
	case ArtifactKindSlideImage, ArtifactKindSlideAudio, ArtifactKindSlideAvatarVideo:
		return true
	default:
		return false
	}
}

// ParseArtifactKind converts raw input into an ArtifactKind.
func ParseArtifactKind(value string) (ArtifactKind, error) {
	for _, candidate := range validArtifactKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid artifact kind %q", value)
}
