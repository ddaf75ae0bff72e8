package engagement

import (
	"time"

	"sift/internal/page"
)

// Weight and threshold constants for the engagement score. The score is a
// fixed weighted sum over four normalized signals; the engaged test is a
// disjunction where any one signal suffices.
const (
	weightScroll      = 30.0
	weightTimeOnPage  = 30.0
	weightVisible     = 20.0
	weightInteraction = 20.0

	timeOnPageCap = 10 * time.Minute

	engagedScrollDepth  = 0.10
	engagedVisibleTime  = 30 * time.Second
	engagedInteractions = 10
)

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source. Tests use this to make time-based
// signals deterministic.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) {
		t.clock = clock
	}
}

// Summary is a point-in-time snapshot of all engagement signals.
type Summary struct {
	ScrollDepth  float64       `json:"scroll_depth"`
	TimeOnPage   time.Duration `json:"time_on_page"`
	VisibleTime  time.Duration `json:"visible_time"`
	Interactions int           `json:"interactions"`
	Score        float64       `json:"score"`
	Engaged      bool          `json:"engaged"`
}

// Tracker composes the three sub-trackers and the page timer into one
// engagement aggregate. It is passive: callers feed it page events via
// Observe and read signals back whenever they need them.
type Tracker struct {
	clock       func() time.Time
	startedAt   time.Time
	scroll      ScrollTracker
	visibility  *VisibilityTracker
	interaction InteractionTracker
}

// NewTracker starts tracking from now.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{clock: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	t.startedAt = t.clock()
	t.visibility = newVisibilityTracker(t.clock)
	return t
}

// Observe dispatches a page event to whichever sub-tracker consumes it.
func (t *Tracker) Observe(ev page.Event) {
	t.scroll.Observe(ev)
	t.visibility.Observe(ev)
	t.interaction.Observe(ev)
}

// Scroll exposes the scroll sub-tracker.
func (t *Tracker) Scroll() *ScrollTracker { return &t.scroll }

// Visibility exposes the visibility sub-tracker.
func (t *Tracker) Visibility() *VisibilityTracker { return t.visibility }

// Interaction exposes the interaction sub-tracker.
func (t *Tracker) Interaction() *InteractionTracker { return &t.interaction }

// TimeOnPage returns the elapsed time since tracking started or was last
// reset.
func (t *Tracker) TimeOnPage() time.Duration {
	return t.clock().Sub(t.startedAt)
}

// Score computes the weighted engagement score in [0, 100]: scroll depth
// 30%, time-on-page capped at ten minutes 30%, visible-time ratio 20%,
// interaction count capped at 100 20%.
func (t *Tracker) Score() float64 {
	elapsed := t.TimeOnPage()

	timeFrac := float64(elapsed) / float64(timeOnPageCap)
	if timeFrac > 1 {
		timeFrac = 1
	}

	visibleFrac := 0.0
	if elapsed > 0 {
		visibleFrac = float64(t.visibility.VisibleTime()) / float64(elapsed)
		if visibleFrac > 1 {
			visibleFrac = 1
		}
	}

	return weightScroll*t.scroll.Depth() +
		weightTimeOnPage*timeFrac +
		weightVisible*visibleFrac +
		weightInteraction*(t.interaction.Score()/interactionCap)
}

// HasEngaged reports whether any single signal crossed its threshold: scroll
// depth above 10%, more than 30 seconds visible, or more than 10
// interactions.
func (t *Tracker) HasEngaged() bool {
	return t.scroll.Depth() > engagedScrollDepth ||
		t.visibility.VisibleTime() > engagedVisibleTime ||
		t.interaction.Count() > engagedInteractions
}

// Snapshot captures every signal at once.
func (t *Tracker) Snapshot() Summary {
	return Summary{
		ScrollDepth:  t.scroll.Depth(),
		TimeOnPage:   t.TimeOnPage(),
		VisibleTime:  t.visibility.VisibleTime(),
		Interactions: t.interaction.Count(),
		Score:        t.Score(),
		Engaged:      t.HasEngaged(),
	}
}

// Reset restarts every sub-tracker and the page timer. Used when the page
// navigates without a full reload.
func (t *Tracker) Reset() {
	t.startedAt = t.clock()
	t.scroll.Reset()
	t.visibility.Reset()
	t.interaction.Reset()
}
