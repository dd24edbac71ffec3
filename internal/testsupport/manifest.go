package testsupport

import (
	"testing"

	"brainprep/internal/config"
	"brainprep/internal/manifest"
)

// MustOpenManifest opens the manifest for cfg and closes it when the test ends.
func MustOpenManifest(t testing.TB, cfg *config.Config) *manifest.Store {
	t.Helper()

	store, err := manifest.Open(cfg)
	if err != nil {
		t.Fatalf("manifest.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
