package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"sift/internal/logging"
)

// Default bounds, overridable per Option.
const (
	DefaultMaxSize    = 500
	DefaultMaxRetries = 3
	DefaultBatchSize  = 50
)

// SyncResult summarizes one sync cycle.
type SyncResult struct {
	Synced int
	Failed int
}

// Option configures a Queue.
type Option func(*Queue)

// WithMaxSize bounds the queue length. Oldest entries are evicted first.
func WithMaxSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxSize = n
		}
	}
}

// WithMaxRetries bounds per-entry rejection retries before eviction.
func WithMaxRetries(n int) Option {
	return func(q *Queue) {
		if n >= 0 {
			q.maxRetries = n
		}
	}
}

// WithBatchSize bounds the sync prefix batch.
func WithBatchSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.batchSize = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithOnlineCheck gates opportunistic post-enqueue syncs.
func WithOnlineCheck(online func() bool) Option {
	return func(q *Queue) {
		if online != nil {
			q.online = online
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(q *Queue) {
		if clock != nil {
			q.clock = clock
		}
	}
}

// Queue is the durable event queue. All mutation goes through the write-ahead
// path: the in-memory list changes first, the full list is persisted, and
// only then is any network delivery attempted.
type Queue struct {
	mu     sync.Mutex
	events []QueuedEvent

	store  Persister
	sink   Sink
	logger *slog.Logger

	maxSize    int
	maxRetries int
	batchSize  int

	online  func() bool
	clock   func() time.Time
	syncing atomic.Bool

	// opportunistic tracks fire-and-forget syncs so Close can drain them.
	opportunistic sync.WaitGroup
}

// New builds a queue over store and sink, replaying any persisted backlog.
// sink may be nil; sync then reports every entry as failed-this-cycle.
func New(ctx context.Context, store Persister, sink Sink, opts ...Option) (*Queue, error) {
	if store == nil {
		return nil, fmt.Errorf("queue: store is required")
	}
	q := &Queue{
		store:      store,
		sink:       sink,
		logger:     logging.NewNop(),
		maxSize:    DefaultMaxSize,
		maxRetries: DefaultMaxRetries,
		batchSize:  DefaultBatchSize,
		online:     func() bool { return true },
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}

	replayed, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue: replay persisted events: %w", err)
	}
	q.events = replayed
	if len(replayed) > 0 {
		q.logger.Info("replayed persisted queue", logging.Int("events", len(replayed)))
	}
	return q, nil
}

// Enqueue appends an event, trims to capacity, and persists the full queue
// before returning. A store failure is the only error surfaced; delivery
// problems never reach the caller. On success a fire-and-forget sync is
// kicked off when the queue believes it is online.
func (q *Queue) Enqueue(ctx context.Context, ev CapturedEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = q.clock().UTC()
	}
	qe := QueuedEvent{
		ID:         uuid.NewString(),
		Event:      ev,
		EnqueuedAt: q.clock().UTC(),
	}

	q.mu.Lock()
	q.events = append(q.events, qe)
	evicted := 0
	if over := len(q.events) - q.maxSize; over > 0 {
		q.events = append(q.events[:0], q.events[over:]...)
		evicted = over
	}
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	if evicted > 0 {
		q.logger.Warn("queue over capacity, evicted oldest events",
			logging.Int("evicted", evicted),
			logging.Int("capacity", q.maxSize))
	}

	if err := q.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	if q.sink != nil && q.online() {
		q.opportunistic.Add(1)
		go func() {
			defer q.opportunistic.Done()
			if _, err := q.Sync(context.Background()); err != nil {
				q.logger.Debug("opportunistic sync skipped", logging.Error(err))
			}
		}()
	}
	return nil
}

// Sync ships one bounded prefix batch. At most one sync runs at a time;
// concurrent triggers return ErrSyncInFlight without blocking. A transport
// failure marks the whole batch failed-this-cycle without touching retry
// counters, since the collector never adjudicated it.
func (q *Queue) Sync(ctx context.Context) (SyncResult, error) {
	if !q.syncing.CompareAndSwap(false, true) {
		return SyncResult{}, ErrSyncInFlight
	}
	defer q.syncing.Store(false)

	q.mu.Lock()
	batch := q.events
	if len(batch) > q.batchSize {
		batch = batch[:q.batchSize]
	}
	batch = append([]QueuedEvent(nil), batch...)
	q.mu.Unlock()

	if len(batch) == 0 {
		return SyncResult{}, nil
	}
	if q.sink == nil {
		return SyncResult{Failed: len(batch)}, nil
	}

	payload := make([]CapturedEvent, len(batch))
	for i, qe := range batch {
		payload[i] = qe.Event
	}

	res, err := q.sink.SubmitBatch(ctx, payload)
	if err != nil {
		q.logger.Warn("batch delivery failed, will retry next cycle",
			logging.Int("batch", len(batch)),
			logging.Error(err))
		return SyncResult{Failed: len(batch)}, nil
	}

	accepted := res.Accepted
	if accepted > len(batch) {
		accepted = len(batch)
	}
	rejected := res.Rejected
	if accepted+rejected > len(batch) {
		rejected = len(batch) - accepted
	}

	q.mu.Lock()
	dropped := q.applyVerdictLocked(batch, accepted, rejected)
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	if dropped > 0 {
		q.logger.Warn("dropped poison events past retry budget",
			logging.Int("dropped", dropped),
			logging.Int("max_retries", q.maxRetries))
	}
	if err := q.store.Save(ctx, snapshot); err != nil {
		q.logger.Error("persist after sync failed", logging.Error(err))
	}

	q.logger.Info("sync cycle complete",
		logging.Int("synced", accepted),
		logging.Int("failed", rejected))
	return SyncResult{Synced: accepted, Failed: rejected}, nil
}

// applyVerdictLocked removes the accepted prefix and increments retry
// counters over the rejected range, evicting entries past the retry budget.
// Entries enqueued during the network round-trip are untouched. Returns the
// number of poison-evicted entries.
func (q *Queue) applyVerdictLocked(batch []QueuedEvent, accepted, rejected int) int {
	inBatch := make(map[string]int, len(batch))
	for i, qe := range batch {
		inBatch[qe.ID] = i
	}

	dropped := 0
	kept := q.events[:0]
	for _, qe := range q.events {
		pos, ok := inBatch[qe.ID]
		if !ok {
			kept = append(kept, qe)
			continue
		}
		if pos < accepted {
			continue
		}
		if pos < accepted+rejected {
			qe.Retries++
			if qe.Retries > q.maxRetries {
				dropped++
				continue
			}
		}
		kept = append(kept, qe)
	}
	q.events = kept
	return dropped
}

// Length returns the number of queued events.
func (q *Queue) Length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Events returns an ordered snapshot, oldest first.
func (q *Queue) Events() []QueuedEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Clear drops every queued event, in memory and in the store.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	q.events = nil
	q.mu.Unlock()
	if err := q.store.Clear(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// Close waits for any fire-and-forget syncs kicked off by Enqueue.
func (q *Queue) Close() {
	q.opportunistic.Wait()
}

func (q *Queue) snapshotLocked() []QueuedEvent {
	out := make([]QueuedEvent, len(q.events))
	copy(out, q.events)
	return out
}
