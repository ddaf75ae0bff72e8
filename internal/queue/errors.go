package queue

import "errors"

var (
	// ErrPersist reports that the durable store rejected a write. It is the
	// only failure Enqueue propagates, since it means the durability
	// guarantee cannot be honored.
	ErrPersist = errors.New("queue persist failed")

	// ErrSyncInFlight reports that another sync is already running. Callers
	// treat it as benign and wait for the next cycle.
	ErrSyncInFlight = errors.New("sync already in flight")
)
