package adapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sift/internal/page"
)

// ContentType classifies the primary content of a page.
type ContentType string

const (
	ContentVideo   ContentType = "video"
	ContentAudio   ContentType = "audio"
	ContentArticle ContentType = "article"
	ContentImage   ContentType = "image"
	ContentOther   ContentType = "other"
)

// Metadata is the structured description an adapter extracts from a page.
// Values are never mutated after extraction; a fresh extraction produces a
// fresh value.
type Metadata struct {
	ContentID       string
	Title           string
	CreatorName     string
	CreatorID       string
	ContentType     ContentType
	DurationSeconds float64
	ThumbnailURL    string
	CanonicalURL    string
	Platform        string
	Extra           map[string]string
}

// Event is a typed playback or interaction observation emitted by an adapter
// while capture is active.
type Event struct {
	Type      string
	At        time.Time
	Platform  string
	ContentID string
	Payload   map[string]any
}

// State tracks the adapter lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateCapturing
	StateStopped
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateCapturing:
		return "capturing"
	case StateStopped:
		return "stopped"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

var (
	// ErrAlreadyCapturing reports an idempotent re-activation of capture.
	// Callers treat it as benign rather than a hard failure.
	ErrAlreadyCapturing = errors.New("capture already active")
	// ErrNotInitialized reports a lifecycle call before Init.
	ErrNotInitialized = errors.New("adapter not initialized")
	// ErrDestroyed reports use of an adapter after Destroy.
	ErrDestroyed = errors.New("adapter destroyed")
)

// InitContext carries the collaborators an adapter binds to at Init time.
type InitContext struct {
	Observer page.Observer
	Logger   *slog.Logger
}

// Adapter is a platform-specific extraction strategy.
type Adapter interface {
	// ID is the stable platform identifier (e.g. "youtube").
	ID() string
	// Domains lists the registrable domains the adapter claims. The index
	// covers these exactly plus their subdomains via parent climbing.
	Domains() []string
	// CanHandle reports whether the adapter can work with the URL. Used as
	// a slow-path fallback when the domain index misses.
	CanHandle(url string) bool
	// Init binds the adapter to a page. Moves state to initialized.
	Init(ctx context.Context, ic InitContext) error
	// Destroy releases all observers and listeners. Terminal.
	Destroy()
	// ExtractMetadata runs the extraction cascade. A nil result with a nil
	// error means the page exposed nothing usable (an expected miss).
	ExtractMetadata(ctx context.Context) (*Metadata, error)
	// StartCapture enables event emission. Returns ErrAlreadyCapturing when
	// capture is already active.
	StartCapture() error
	// StopCapture disables event emission.
	StopCapture()
	// State reports the current lifecycle state.
	State() State
	// PlaybackState reports the current playback snapshot when the page has
	// playable media, nil otherwise.
	PlaybackState(ctx context.Context) (*page.PlaybackState, error)
	// Subscribe registers an event callback and returns its unsubscribe
	// handle. Callback panics are isolated per subscriber.
	Subscribe(fn func(Event)) func()
}
