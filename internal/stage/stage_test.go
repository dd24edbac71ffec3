package stage_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"brainprep/internal/services"
	"brainprep/internal/stage"
)

func TestParseNamesCanonicalOrder(t *testing.T) {
	got, err := stage.ParseNames([]string{"png,bet", "axes", "png"})
	if err != nil {
		t.Fatalf("ParseNames returned error: %v", err)
	}
	want := []stage.Name{stage.SkullStrip, stage.Axes, stage.PNG}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected stages (-want +got):\n%s", diff)
	}
}

func TestParseNamesDefaultsToAll(t *testing.T) {
	got, err := stage.ParseNames(nil)
	if err != nil {
		t.Fatalf("ParseNames returned error: %v", err)
	}
	if diff := cmp.Diff(stage.Names(), got); diff != "" {
		t.Fatalf("unexpected stages (-want +got):\n%s", diff)
	}
	if _, err := stage.ParseNames([]string{"segment"}); err == nil {
		t.Fatal("expected error for unknown stage")
	}
}

func TestLabels(t *testing.T) {
	if got := stage.SkullStrip.Label(); got != "Skull Strip" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := stage.PNG.Label(); got != "PNG Export" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := stage.StatusSucceeded.Label(); got != "Succeeded" {
		t.Fatalf("unexpected status label %q", got)
	}
}

func TestRecorderFailedCarriesKind(t *testing.T) {
	rec := stage.NewRecorder(stage.Convert, "P1")
	started := time.Now().Add(-time.Second)
	err := services.Wrap(services.ErrExternalTool, "convert", "dcm2niix", "exit 1", errors.New("boom"))
	res := rec.Failed(started, "/in", "/out", err)
	if res.Status != stage.StatusFailed || res.ErrorKind != "external_tool" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Patient != "P1" || res.Stage != stage.Convert {
		t.Fatalf("unexpected identity: %+v", res)
	}
	if res.Duration() <= 0 {
		t.Fatalf("expected positive duration, got %s", res.Duration())
	}
}

func TestFindFilesFiltersAndSorts(t *testing.T) {
	root := t.TempDir()
	files := []string{
		"b/T1_axial.nii.gz",
		"a/T1_sag.nii.gz",
		"a/T2_sag.nii.gz",
		"a/T1_notes.txt",
	}
	for _, rel := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := stage.FindFiles(root, ".nii.gz", func(path string) bool {
		return filepath.Base(path)[:2] == "T1"
	})
	if err != nil {
		t.Fatalf("FindFiles returned error: %v", err)
	}
	want := []string{filepath.Join(root, "a/T1_sag.nii.gz"), filepath.Join(root, "b/T1_axial.nii.gz")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected files (-want +got):\n%s", diff)
	}
}

func TestFindFilesMissingDirectory(t *testing.T) {
	got, err := stage.FindFiles(filepath.Join(t.TempDir(), "missing"), ".nii.gz", nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected no files and no error, got %v %v", got, err)
	}
}
