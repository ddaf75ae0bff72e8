package queue

import (
	"context"
	"time"
)

// CapturedEvent is one discrete observation produced by the capture layers:
// a platform event, a page view, or an explicit rating.
type CapturedEvent struct {
	Type      string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	URL       string         `json:"url"`
	ItemID    string         `json:"item_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// QueuedEvent wraps a captured event with queue bookkeeping. The queue owns
// these exclusively; retries counts how many times the collector rejected
// the entry.
type QueuedEvent struct {
	ID         string        `json:"id"`
	Event      CapturedEvent `json:"event"`
	EnqueuedAt time.Time     `json:"timestamp"`
	Retries    int           `json:"retries"`
}

// BatchResult is the collector's verdict over one submitted batch. Accepted
// and Rejected are positional counts over the batch in order, not per-event
// identifiers.
type BatchResult struct {
	Accepted     int
	Rejected     int
	CreatedItems []string
}

// Sink delivers event batches to the collector.
type Sink interface {
	SubmitBatch(ctx context.Context, events []CapturedEvent) (BatchResult, error)
}
