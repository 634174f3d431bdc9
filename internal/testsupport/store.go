package testsupport

import (
	"context"
	"testing"

	"tandem/internal/config"
	"tandem/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewMapping creates a pending mapping for tests using the provided store.
func NewMapping(t testing.TB, store *queue.Store, audioItemID, title, ebookPath, documentID string) *queue.Item {
	t.Helper()

	item, err := store.NewMapping(context.Background(), audioItemID, title, ebookPath, documentID)
	if err != nil {
		t.Fatalf("store.NewMapping: %v", err)
	}
	return item
}
