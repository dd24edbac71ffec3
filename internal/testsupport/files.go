package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"brainprep/internal/nifti"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteSeries creates <root>/<patient>/<study>/<series>/ with a placeholder
// instance file and returns the series directory.
func WriteSeries(t testing.TB, root, patient, study, series string) string {
	t.Helper()
	dir := filepath.Join(root, patient, study, series)
	WriteFile(t, filepath.Join(dir, "000001.dcm"), []byte("DICM"))
	return dir
}

// WriteVolume writes a float32 ramp volume of the given shape to path.
func WriteVolume(t testing.TB, path string, shape ...int) *nifti.Volume {
	t.Helper()
	total := 1
	for _, extent := range shape {
		total *= extent
	}
	values := make([]float32, total)
	for i := range values {
		values[i] = float32(i)
	}
	vol, err := nifti.NewFloat32(shape, values)
	if err != nil {
		t.Fatalf("build volume: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := nifti.Write(path, vol); err != nil {
		t.Fatalf("write volume %s: %v", path, err)
	}
	return vol
}
