package engagement

import (
	"sync"

	"sift/internal/page"
)

// ScrollTracker records the deepest point the user has scrolled to, as a
// fraction of total page height.
type ScrollTracker struct {
	mu       sync.Mutex
	maxDepth float64
}

// Observe updates the tracked maximum from a scroll event. Events without a
// positive page height are ignored.
func (t *ScrollTracker) Observe(ev page.Event) {
	if ev.Kind != page.EventScroll || ev.PageHeight <= 0 {
		return
	}
	depth := (ev.ScrollTop + ev.ViewportHeight) / ev.PageHeight
	if depth < 0 {
		depth = 0
	}
	if depth > 1 {
		depth = 1
	}
	t.mu.Lock()
	if depth > t.maxDepth {
		t.maxDepth = depth
	}
	t.mu.Unlock()
}

// Depth returns the maximum scroll depth seen, in [0, 1].
func (t *ScrollTracker) Depth() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxDepth
}

// Reset clears the tracked maximum.
func (t *ScrollTracker) Reset() {
	t.mu.Lock()
	t.maxDepth = 0
	t.mu.Unlock()
}
