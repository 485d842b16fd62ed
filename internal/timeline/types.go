package timeline

// Wire types for the render provider's edit API. Field names follow the
// provider's JSON contract; zero values are omitted so stored timelines stay
// compact.

// Timeline is an ordered stack of tracks. The first track renders on top.
type Timeline struct {
	Background string  `json:"background,omitempty"`
	Tracks     []Track `json:"tracks"`
}

// Track is a sequence of non-overlapping clips.
type Track struct {
	Clips []Clip `json:"clips"`
}

// Clip places an asset on the timeline. Start and Length are seconds.
type Clip struct {
	Asset      Asset       `json:"asset"`
	Start      float64     `json:"start"`
	Length     float64     `json:"length"`
	Fit        string      `json:"fit,omitempty"`
	Position   string      `json:"position,omitempty"`
	Transition *Transition `json:"transition,omitempty"`
}

// Asset is the media or generated content a clip shows.
type Asset struct {
	Type      string     `json:"type"`
	Src       string     `json:"src,omitempty"`
	Text      string     `json:"text,omitempty"`
	Style     string     `json:"style,omitempty"`
	ChromaKey *ChromaKey `json:"chromaKey,omitempty"`
}

// ChromaKey removes the avatar recording background color.
type ChromaKey struct {
	Color     string `json:"color"`
	Threshold int    `json:"threshold,omitempty"`
	Halo      int    `json:"halo,omitempty"`
}

// Transition fades a clip in or out.
type Transition struct {
	In  string `json:"in,omitempty"`
	Out string `json:"out,omitempty"`
}

// Output is the fixed render target.
type Output struct {
	Format     string  `json:"format"`
	Resolution string  `json:"resolution"`
	FPS        float64 `json:"fps"`
	Size       Size    `json:"size"`
}

// Size is the output frame size in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RenderPayload is the full edit submitted to the provider.
type RenderPayload struct {
	Timeline Timeline `json:"timeline"`
	Output   Output   `json:"output"`
}

// DefaultOutput returns the fixed 1080p/25fps mp4 output block.
func DefaultOutput() Output {
	return Output{
		Format:     "mp4",
		Resolution: "1080",
		FPS:        25,
		Size:       Size{Width: 1920, Height: 1080},
	}
}
