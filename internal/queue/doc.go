// Package queue implements the durable event queue between capture and the
// collector. Every enqueue persists the full queue before any network
// attempt is made (write-ahead discipline); sync ships a bounded ordered
// prefix batch and interprets the response as a positional accepted/rejected
// split. The queue is bounded: oldest entries are evicted first under
// pressure, and entries whose retry counter exceeds the maximum are dropped
// rather than retried forever.
package queue
