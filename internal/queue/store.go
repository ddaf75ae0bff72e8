package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Persister is the durable storage contract the queue writes through.
// Implementations must replay the saved list unchanged, in order.
type Persister interface {
	Load(ctx context.Context) ([]QueuedEvent, error)
	Save(ctx context.Context, events []QueuedEvent) error
	Clear(ctx context.Context) error
}

// Store persists the queue in SQLite. The whole queue lives in one ordered
// table; Save replaces it atomically so a crash can never observe a partial
// write.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS queue_events (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    event TEXT NOT NULL,
    enqueued_at TEXT NOT NULL,
    retries INTEGER NOT NULL DEFAULT 0
)`

// OpenStore initializes or connects to the queue database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.execWithRetry(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load replays the persisted queue in enqueue order.
func (s *Store) Load(ctx context.Context) ([]QueuedEvent, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, event, enqueued_at, retries FROM queue_events ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []QueuedEvent
	for rows.Next() {
		var (
			qe         QueuedEvent
			rawEvent   string
			enqueuedAt string
		)
		if err := rows.Scan(&qe.ID, &rawEvent, &enqueuedAt, &qe.Retries); err != nil {
			return nil, fmt.Errorf("scan queue row: %w", err)
		}
		if err := json.Unmarshal([]byte(rawEvent), &qe.Event); err != nil {
			return nil, fmt.Errorf("decode queued event %s: %w", qe.ID, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, enqueuedAt)
		if err != nil {
			return nil, fmt.Errorf("parse enqueue time for %s: %w", qe.ID, err)
		}
		qe.EnqueuedAt = ts
		events = append(events, qe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue rows: %w", err)
	}
	return events, nil
}

// Save replaces the persisted queue with events, preserving order.
func (s *Store) Save(ctx context.Context, events []QueuedEvent) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin save: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM queue_events"); err != nil {
			return fmt.Errorf("truncate queue: %w", err)
		}
		for _, qe := range events {
			raw, err := json.Marshal(qe.Event)
			if err != nil {
				return fmt.Errorf("encode queued event %s: %w", qe.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO queue_events (id, event, enqueued_at, retries) VALUES (?, ?, ?, ?)",
				qe.ID, string(raw), qe.EnqueuedAt.UTC().Format(time.RFC3339Nano), qe.Retries); err != nil {
				return fmt.Errorf("insert queued event %s: %w", qe.ID, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit save: %w", err)
		}
		return nil
	})
}

// Clear removes every persisted entry.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.execWithRetry(ensureContext(ctx), "DELETE FROM queue_events"); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	return nil
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

var _ Persister = (*Store)(nil)
