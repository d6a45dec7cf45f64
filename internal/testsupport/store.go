package testsupport

import (
	"testing"

	"shrink/internal/config"
	"shrink/internal/queue"
)

// MustOpenStore opens a task store for the given config, failing the test
// on error.
func MustOpenStore(t *testing.T, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}
