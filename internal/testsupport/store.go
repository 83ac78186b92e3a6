package testsupport

import (
	"testing"

	"mangarecap/internal/config"
	"mangarecap/internal/logging"
	"mangarecap/internal/mangacache"
)

// MustOpenStore opens the configured cache store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) mangacache.Store {
	t.Helper()

	store, err := mangacache.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("mangacache.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
