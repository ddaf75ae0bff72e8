package engagement

import (
	"sync"

	"sift/internal/page"
)

// interactionCap bounds the interaction score's contribution.
const interactionCap = 100

// InteractionTracker counts discrete user interactions (clicks, key presses,
// pointer activity).
type InteractionTracker struct {
	mu    sync.Mutex
	count int
}

// Observe counts an interaction event.
func (t *InteractionTracker) Observe(ev page.Event) {
	if ev.Kind != page.EventInteraction {
		return
	}
	t.mu.Lock()
	t.count++
	t.mu.Unlock()
}

// Count returns the raw number of interactions seen.
func (t *InteractionTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Score returns the interaction count capped at 100.
func (t *InteractionTracker) Score() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count > interactionCap {
		return interactionCap
	}
	return float64(t.count)
}

// Reset clears the count.
func (t *InteractionTracker) Reset() {
	t.mu.Lock()
	t.count = 0
	t.mu.Unlock()
}
