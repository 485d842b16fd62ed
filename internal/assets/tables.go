package assets

import (
	"fmt"

	"github.com/slidereel/slidereel-backend/pkg/config"
	"github.com/slidereel/slidereel-backend/pkg/enums"
)

// Bucket routing, content types and key prefixes are exhaustive per kind.
// An unmapped kind is a programming error, hence the panics.

var contentTypesByKind = map[enums.ArtifactKind]string{
	enums.ArtifactKindSlideImage:       "image/png",
	enums.ArtifactKindSlideAudio:       "audio/mpeg",
	enums.ArtifactKindSlideAvatarVideo: "video/mp4",
	enums.ArtifactKindIntroVideo:       "video/mp4",
	enums.ArtifactKindFullVideo:        "video/mp4",
}

var keyPrefixesByKind = map[enums.ArtifactKind]string{
	enums.ArtifactKindSlideImage:       "images",
	enums.ArtifactKindSlideAudio:       "audio",
	enums.ArtifactKindSlideAvatarVideo: "avatar_videos",
	enums.ArtifactKindIntroVideo:       "intro_videos",
	enums.ArtifactKindFullVideo:        "videos",
}

func contentTypeForKind(kind enums.ArtifactKind) string {
	ct, ok := contentTypesByKind[kind]
	if !ok {
		panic(fmt.Sprintf("no content type mapped for artifact kind %q", kind))
	}
	return ct
}

func keyPrefixForKind(kind enums.ArtifactKind) string {
	prefix, ok := keyPrefixesByKind[kind]
	if !ok {
		panic(fmt.Sprintf("no key prefix mapped for artifact kind %q", kind))
	}
	return prefix
}

func bucketForKind(kind enums.ArtifactKind, cfg config.GCSConfig) string {
	switch kind {
	case enums.ArtifactKindSlideImage:
		return cfg.ImageBucket
	case enums.ArtifactKindSlideAudio:
		return cfg.AudioBucket
	case enums.ArtifactKindSlideAvatarVideo, enums.ArtifactKindIntroVideo, enums.ArtifactKindFullVideo:
		return cfg.VideoBucket
	default:
		panic(fmt.Sprintf("no bucket mapped for artifact kind %q", kind))
	}
}
