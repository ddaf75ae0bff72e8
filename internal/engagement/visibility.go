package engagement

import (
	"sync"
	"time"

	"sift/internal/page"
)

// VisibilityTracker accumulates the time the page has spent visible. Pages
// start visible; a hidden interval only begins once a visibility event says
// so.
type VisibilityTracker struct {
	mu          sync.Mutex
	clock       func() time.Time
	visible     bool
	since       time.Time
	accumulated time.Duration
}

func newVisibilityTracker(clock func() time.Time) *VisibilityTracker {
	return &VisibilityTracker{
		clock:   clock,
		visible: true,
		since:   clock(),
	}
}

// Observe folds a visibility event into the accumulated total.
func (t *VisibilityTracker) Observe(ev page.Event) {
	if ev.Kind != page.EventVisibility {
		return
	}
	at := ev.At
	if at.IsZero() {
		at = t.clock()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.visible && !ev.Visible {
		t.accumulated += at.Sub(t.since)
	}
	if !t.visible && ev.Visible {
		t.since = at
	}
	t.visible = ev.Visible
}

// VisibleTime returns the total time the page has been visible so far,
// including the currently open visible interval.
func (t *VisibilityTracker) VisibleTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := t.accumulated
	if t.visible {
		total += t.clock().Sub(t.since)
	}
	if total < 0 {
		total = 0
	}
	return total
}

// Reset restarts accumulation from now, keeping the current visibility.
func (t *VisibilityTracker) Reset() {
	t.mu.Lock()
	t.accumulated = 0
	t.since = t.clock()
	t.mu.Unlock()
}
