package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"brainprep/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The DICOM root is <tmp>/TCGA-GBM and tool binaries are bare names so PATH
// stubs resolve.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DICOMRoot = filepath.Join(base, "TCGA-GBM")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Tools.Bet = "bet"
	cfgVal.Tools.FSLDir = filepath.Join(base, "fsl")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := os.MkdirAll(builder.cfg.Paths.DICOMRoot, 0o755); err != nil {
		t.Fatalf("mkdir dicom root: %v", err)
	}
	return builder.cfg
}

// WithCohortFile writes ids to a plain-text cohort file and points the config
// at it.
func WithCohortFile(ids ...string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "cohort.txt")
		content := strings.Join(ids, "\n") + "\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			b.t.Fatalf("write cohort: %v", err)
		}
		b.cfg.Paths.CohortFile = path
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default external binaries are
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"dcm2niix", "bet", "med2image"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DICOMRoot)
}
