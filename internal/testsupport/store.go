package testsupport

import (
	"testing"

	"airwave/internal/config"
	"airwave/internal/stations"
)

// MustOpenStore opens a station store for the given config and registers
// cleanup to close it when the test finishes.
func MustOpenStore(t testing.TB, cfg *config.Config) *stations.Store {
	t.Helper()

	store, err := stations.Open(cfg)
	if err != nil {
		t.Fatalf("open station store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close station store: %v", err)
		}
	})
	return store
}
