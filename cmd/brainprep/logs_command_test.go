package main

import (
	"path/filepath"
	"strings"
	"testing"

	"brainprep/internal/logging"
	"brainprep/internal/testsupport"
)

func TestLogsCommandFiltersByPatient(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.cfg.Paths.LogDir, logging.LogFileName)
	testsupport.WriteFile(t, path, []byte(strings.Join([]string{
		`{"level":"INFO","msg":"stage started","patient_id":"P1","stage":"convert"}`,
		`{"level":"INFO","msg":"stage started","patient_id":"P2","stage":"convert"}`,
	}, "\n")+"\n"))

	out, _, err := runCLI(t, []string{"logs", "--patient", "P2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, `"patient_id":"P2"`)
	if strings.Contains(out, `"patient_id":"P1"`) {
		t.Fatalf("expected P1 lines to be filtered out, got %q", out)
	}
}
