package testsupport

import (
	"testing"

	"tunesweep/internal/config"
	"tunesweep/internal/history"
)

// MustOpenHistory opens the history database configured by cfg and closes
// it when the test ends.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
