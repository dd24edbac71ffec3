package pngexport_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"brainprep/internal/logging"
	"brainprep/internal/paths"
	"brainprep/internal/pngexport"
	"brainprep/internal/services"
	"brainprep/internal/stage"
	"brainprep/internal/testsupport"
)

func TestRunInvokesRenderer(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	resolver := paths.NewResolver(cfg)
	input := filepath.Join(resolver.AxesRoot(), "P1", "s", "T1_brain_axes-corrected.nii.gz")
	testsupport.WriteFile(t, input, []byte("x"))

	exec := &testsupport.RecordingExecutor{Handle: func(_ context.Context, cmd services.Command) error {
		return os.WriteFile(filepath.Join(cmd.Args[3], "T1_axes-corrected-slice000.png"), []byte("png"), 0o644)
	}}
	handler := pngexport.NewHandler(cfg, resolver, exec, logging.NewNop())
	results, err := handler.Run(context.Background(), "P1")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(results) != 1 || results[0].Status != stage.StatusSucceeded {
		t.Fatalf("unexpected results: %+v", results)
	}

	outDir := filepath.Join(resolver.PNGRoot(), "P1", "s")
	want := []string{"-i", input, "-d", outDir, "-o", "T1_axes-corrected.png"}
	commands := exec.Commands()
	if len(commands) != 1 {
		t.Fatalf("expected one invocation, got %d", len(commands))
	}
	if diff := cmp.Diff(want, commands[0].Args); diff != "" {
		t.Fatalf("unexpected args (-want +got):\n%s", diff)
	}

	again, err := handler.Run(context.Background(), "P1")
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}
	if again[0].Status != stage.StatusSkipped {
		t.Fatalf("expected rerun to skip, got %+v", again[0])
	}
	if len(exec.Commands()) != 1 {
		t.Fatal("expected renderer not to run again")
	}
}

func TestRendered(t *testing.T) {
	dir := t.TempDir()
	if pngexport.Rendered(dir, "T1.png") {
		t.Fatal("expected empty dir to be unrendered")
	}
	testsupport.WriteFile(t, filepath.Join(dir, "T1-slice042.png"), []byte("x"))
	if !pngexport.Rendered(dir, "T1.png") {
		t.Fatal("expected slice file to count as rendered")
	}
	if pngexport.Rendered(filepath.Join(dir, "missing"), "T1.png") {
		t.Fatal("expected missing dir to be unrendered")
	}
}
