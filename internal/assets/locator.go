package assets

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/slidereel/slidereel-backend/pkg/db/models"
	"github.com/slidereel/slidereel-backend/pkg/enums"
	pkgerrors "github.com/slidereel/slidereel-backend/pkg/errors"
)

// SourceFile is a locatable artifact source on the shared generator volume.
type SourceFile struct {
	Path     string
	FileName string
	Size     int64
}

// Locator resolves the on-disk source file for each artifact kind. The
// generators write to a shared volume rooted at basePath; entity path columns
// are honored first, the conventional directory layout is the fallback.
type Locator struct {
	basePath string
}

// NewLocator constructs a locator rooted at basePath.
func NewLocator(basePath string) (*Locator, error) {
	if basePath == "" {
		return nil, fmt.Errorf("storage base path required")
	}
	return &Locator{basePath: basePath}, nil
}

// Locate finds the source file for the given kind. slide is required for
// slide-scoped kinds, speech for audio. Returns a FileNotLocated error when no
// candidate file exists.
func (l *Locator) Locate(kind enums.ArtifactKind, presentationID uuid.UUID, slide *models.Slide, speech *models.SpeechRecord) (*SourceFile, error) {
	switch kind {
	case enums.ArtifactKindSlideImage:
		if slide == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "slide required for slide image")
		}
		if slide.ImagePath != nil {
			if src, ok := l.statFile(*slide.ImagePath); ok {
				return src, nil
			}
		}
		return l.newestInDir(l.slideDir(presentationID, slide.ID, "images"), kind)

	case enums.ArtifactKindSlideAudio:
		if speech == nil {
			return nil, pkgerrors.New(pkgerrors.CodeFileNotLocated, "no active speech record for slide")
		}
		if src, ok := l.statFile(speech.AudioPath); ok {
			return src, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeFileNotLocated,
			fmt.Sprintf("speech audio file missing at %s", speech.AudioPath))

	case enums.ArtifactKindSlideAvatarVideo:
		if slide == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "slide required for avatar video")
		}
		if slide.AvatarVideoPath != nil {
			if src, ok := l.statFile(*slide.AvatarVideoPath); ok {
				return src, nil
			}
		}
		return l.newestInDir(l.slideDir(presentationID, slide.ID, "avatar_videos"), kind)

	case enums.ArtifactKindIntroVideo:
		return l.newestInDir(l.presentationDir(presentationID, "intro_videos"), kind)

	case enums.ArtifactKindFullVideo:
		return l.newestInDir(l.presentationDir(presentationID, "renders"), kind)

	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported artifact kind %q", kind))
	}
}

func (l *Locator) presentationDir(presentationID uuid.UUID, sub string) string {
	return filepath.Join(l.basePath, "presentations", presentationID.String(), sub)
}

func (l *Locator) slideDir(presentationID, slideID uuid.UUID, sub string) string {
	return filepath.Join(l.basePath, "presentations", presentationID.String(), "slides", slideID.String(), sub)
}

// statFile resolves a stored path (absolute, or relative to the base path) to
// an existing regular file.
func (l *Locator) statFile(stored string) (*SourceFile, bool) {
	if stored == "" {
		return nil, false
	}
	full := stored
	if !filepath.IsAbs(full) {
		full = filepath.Join(l.basePath, stored)
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return nil, false
	}
	return &SourceFile{Path: full, FileName: info.Name(), Size: info.Size()}, true
}

// newestInDir returns the most recently modified regular file in dir.
func (l *Locator) newestInDir(dir string, kind enums.ArtifactKind) (*SourceFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeFileNotLocated,
			fmt.Sprintf("no source directory for %s at %s", kind, dir))
	}

	var newest *SourceFile
	var newestMod int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == nil || info.ModTime().UnixNano() > newestMod {
			newest = &SourceFile{
				Path:     filepath.Join(dir, entry.Name()),
				FileName: entry.Name(),
				Size:     info.Size(),
			}
			newestMod = info.ModTime().UnixNano()
		}
	}
	if newest == nil {
		return nil, pkgerrors.New(pkgerrors.CodeFileNotLocated,
			fmt.Sprintf("no candidate file for %s in %s", kind, dir))
	}
	return newest, nil
}
