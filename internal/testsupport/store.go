package testsupport

import (
	"testing"

	"sift/internal/config"
	"sift/internal/queue"
)

// MustOpenStore opens the queue store for cfg and fails the test on error.
// The store is closed automatically when the test ends.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.OpenStore(cfg.QueueDBPath())
	if err != nil {
		t.Fatalf("open queue store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
