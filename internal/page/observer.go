package page

import (
	"context"
	"image"
	"time"
)

// EventKind tags a page event.
type EventKind string

const (
	EventScroll      EventKind = "scroll"
	EventVisibility  EventKind = "visibility"
	EventInteraction EventKind = "interaction"
	EventNavigation  EventKind = "navigation"
	EventMediaAdded  EventKind = "media_added"
	EventPlayback    EventKind = "playback"
)

// InteractionKind classifies a user interaction event.
type InteractionKind string

const (
	InteractionClick   InteractionKind = "click"
	InteractionKey     InteractionKind = "key"
	InteractionPointer InteractionKind = "pointer"
)

// PlaybackAction classifies a media playback transition.
type PlaybackAction string

const (
	PlaybackPlay  PlaybackAction = "play"
	PlaybackPause PlaybackAction = "pause"
	PlaybackSeek  PlaybackAction = "seek"
	PlaybackEnded PlaybackAction = "ended"
)

// Event is a single observation from the page. Only the fields relevant to
// Kind are populated.
type Event struct {
	Kind EventKind
	At   time.Time

	// Scroll fields.
	ScrollTop      float64
	ViewportHeight float64
	PageHeight     float64

	// Visibility fields.
	Visible bool

	// Interaction fields.
	Interaction InteractionKind

	// Navigation fields.
	URL string

	// Playback fields.
	Action   PlaybackAction
	Position float64
}

// PlaybackState is a snapshot of a media element's playback position.
type PlaybackState struct {
	Position float64
	Duration float64
	Paused   bool
	Muted    bool
	Rate     float64
}

// MediaKind distinguishes playable media element types.
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// FrameGrabber captures the currently rendered frame of a video element.
type FrameGrabber interface {
	GrabFrame(ctx context.Context) (image.Image, error)
}

// AudioTap streams mono PCM samples from a playing media element. ReadChunk
// returns io.EOF once no further samples are available.
type AudioTap interface {
	SampleRate() int
	ReadChunk(ctx context.Context) ([]float64, error)
}

// MediaElement describes a playable element discovered on the page. Frames
// and Audio are nil when the host cannot capture the respective stream.
type MediaElement struct {
	Kind   MediaKind
	Src    string
	Width  int
	Height int
	State  PlaybackState
	Frames FrameGrabber
	Audio  AudioTap
}

// Observer is the host collaborator that watches a live page. Implementations
// are expected to be driven by whatever rendering or instrumentation mechanism
// the deployment uses; the capture pipeline only consumes this interface.
type Observer interface {
	// Document returns the current rendered document.
	Document(ctx context.Context) (*Document, error)
	// MediaElements returns the playable elements currently on the page.
	MediaElements(ctx context.Context) ([]*MediaElement, error)
	// Events returns the observation stream plus an unsubscribe func.
	Events() (<-chan Event, func())
	// Screenshot captures a rendered-content proxy image of the viewport,
	// used when no video frame is available. May return nil, nil when the
	// host cannot produce one.
	Screenshot(ctx context.Context) (image.Image, error)
}
