package cohort_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"brainprep/internal/cohort"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadYAMLList(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cohort.yaml", "- TCGA-02-0003\n- TCGA-06-0125\n- TCGA-02-0003\n")
	c, err := cohort.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"TCGA-02-0003", "TCGA-06-0125"}, c.IDs()); diff != "" {
		t.Fatalf("unexpected ids (-want +got):\n%s", diff)
	}
}

func TestLoadYAMLMapping(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cohort.yml", "patients:\n  - A\n  - B\n")
	c, err := cohort.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !c.Contains("A") || !c.Contains("B") || c.Contains("C") {
		t.Fatalf("unexpected membership: %v", c.IDs())
	}
}

func TestLoadYAMLRejectsScalar(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cohort.yaml", "just-a-string\n")
	if _, err := cohort.Load(path); err == nil {
		t.Fatal("expected error for scalar document")
	}
}

func TestLoadPlainText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cohort.txt", "# eligible\nTCGA-02-0003\n\n  TCGA-08-0389  # recurrent\n")
	c, err := cohort.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"TCGA-02-0003", "TCGA-08-0389"}, c.IDs()); diff != "" {
		t.Fatalf("unexpected ids (-want +got):\n%s", diff)
	}
}

func TestDiscoverListsPatientDirectories(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"P2", "P1", ".cache"} {
		if err := os.Mkdir(filepath.Join(root, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeFile(t, root, "README", "not a patient")

	c, err := cohort.Resolve("", root)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"P1", "P2"}, c.IDs()); diff != "" {
		t.Fatalf("unexpected ids (-want +got):\n%s", diff)
	}
}

func TestNilCohortIsEmpty(t *testing.T) {
	var c *cohort.Cohort
	if c.Contains("x") || c.Len() != 0 || c.IDs() != nil {
		t.Fatal("expected nil cohort to behave as empty")
	}
}
