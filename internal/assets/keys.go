package assets

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/slidereel/slidereel-backend/pkg/enums"
)

const keyTimestampLayout = "20060102T150405Z"

// buildObjectKey produces the content-addressed key for a publication. The
// timestamp makes every (re)publish land on a fresh object, so a forced
// republish never races readers of the previous key.
func buildObjectKey(presentationID uuid.UUID, slideID *uuid.UUID, kind enums.ArtifactKind, fileName string, now time.Time) string {
	cleanName := sanitizeFileName(fileName)
	if cleanName == "" {
		cleanName = uuid.NewString()
	}
	stamp := now.UTC().Format(keyTimestampLayout)

	if kind.IsSlideScoped() && slideID != nil {
		return fmt.Sprintf(
			"presentations/%s/slides/%s/%s/%s_%s",
			presentationID, slideID, keyPrefixForKind(kind), stamp, cleanName,
		)
	}
	return fmt.Sprintf(
		"presentations/%s/%s/%s_%s",
		presentationID, keyPrefixForKind(kind), stamp, cleanName,
	)
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.TrimSpace(name))
	if clean == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
