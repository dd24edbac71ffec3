package skullstrip_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"brainprep/internal/logging"
	"brainprep/internal/paths"
	"brainprep/internal/services"
	"brainprep/internal/skullstrip"
	"brainprep/internal/stage"
	"brainprep/internal/testsupport"
)

func TestRunSelectsModalityAndBuildsCommand(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	resolver := paths.NewResolver(cfg)
	niiDir := filepath.Join(resolver.NIfTIRoot(), "P1", "study", "series")
	t1 := filepath.Join(niiDir, "AX_T1_POST_5.nii.gz")
	testsupport.WriteFile(t, t1, []byte("x"))
	testsupport.WriteFile(t, filepath.Join(niiDir, "AX_FLAIR_7.nii.gz"), []byte("x"))
	testsupport.WriteFile(t, filepath.Join(niiDir, "AX_T1_POST_5.json"), []byte("{}"))

	exec := &testsupport.RecordingExecutor{}
	handler := skullstrip.NewHandler(cfg, resolver, exec, logging.NewNop())
	results, err := handler.Run(context.Background(), "P1")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(results) != 1 || results[0].Status != stage.StatusSucceeded {
		t.Fatalf("expected one succeeded result, got %+v", results)
	}

	commands := exec.Commands()
	if len(commands) != 1 {
		t.Fatalf("expected one bet invocation, got %d", len(commands))
	}
	cmd := commands[0]
	wantOut := filepath.Join(resolver.BrainRoot(), "P1", "study", "series", "AX_T1_POST_5_brain")
	if cmd.Binary != "bet" || cmd.Args[0] != t1 || cmd.Args[1] != wantOut {
		t.Fatalf("unexpected command: %+v", cmd)
	}
	if results[0].Output != wantOut+".nii.gz" {
		t.Fatalf("unexpected recorded output %q", results[0].Output)
	}
	env := strings.Join(cmd.Env, "\n")
	for _, want := range []string{"FSLDIR=" + cfg.Tools.FSLDir, "FSLOUTPUTTYPE=NIFTI_GZ"} {
		if !strings.Contains(env, want) {
			t.Fatalf("expected %q in env %v", want, cmd.Env)
		}
	}
	if info, err := os.Stat(filepath.Dir(wantOut)); err != nil || !info.IsDir() {
		t.Fatalf("expected output directory created, err=%v", err)
	}
}

func TestRunSkipsExistingOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	resolver := paths.NewResolver(cfg)
	input := filepath.Join(resolver.NIfTIRoot(), "P1", "s", "T1.nii.gz")
	testsupport.WriteFile(t, input, []byte("x"))
	out, err := resolver.BrainOutput(input)
	if err != nil {
		t.Fatal(err)
	}
	testsupport.WriteFile(t, out+".nii.gz", []byte("x"))

	exec := &testsupport.RecordingExecutor{}
	results, err := skullstrip.NewHandler(cfg, resolver, exec, nil).Run(context.Background(), "P1")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(results) != 1 || results[0].Status != stage.StatusSkipped {
		t.Fatalf("expected skipped result, got %+v", results)
	}
	if len(exec.Commands()) != 0 {
		t.Fatal("expected bet not to run")
	}
}

func TestRunRecordsFailureAndContinues(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	resolver := paths.NewResolver(cfg)
	dir := filepath.Join(resolver.NIfTIRoot(), "P1", "s")
	testsupport.WriteFile(t, filepath.Join(dir, "a_T1.nii.gz"), []byte("x"))
	testsupport.WriteFile(t, filepath.Join(dir, "b_T1.nii.gz"), []byte("x"))

	exec := &testsupport.RecordingExecutor{Handle: func(_ context.Context, cmd services.Command) error {
		if strings.Contains(cmd.Args[0], "a_T1") {
			return errors.New("exit status 1")
		}
		return nil
	}}
	results, err := skullstrip.NewHandler(cfg, resolver, exec, nil).Run(context.Background(), "P1")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(results) != 2 || results[0].Status != stage.StatusFailed || results[1].Status != stage.StatusSucceeded {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestRunWithoutInputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results, err := skullstrip.NewHandler(cfg, paths.NewResolver(cfg), &testsupport.RecordingExecutor{}, nil).Run(context.Background(), "P1")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(results) != 1 || results[0].Reason != stage.ReasonNoInputs {
		t.Fatalf("expected no-input skip, got %+v", results)
	}
}

func TestEnvironmentPrependsFSLBin(t *testing.T) {
	t.Setenv("PATH", "/usr/bin")
	cfg := testsupport.NewConfig(t)
	env := skullstrip.Environment(cfg.Tools)
	want := "PATH=" + filepath.Join(cfg.Tools.FSLDir, "bin") + string(os.PathListSeparator) + "/usr/bin"
	if env[len(env)-1] != want {
		t.Fatalf("unexpected PATH entry %q", env[len(env)-1])
	}
}

func TestRunGivesBetOnlyFSLEnvironment(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	resolver := paths.NewResolver(cfg)
	t.Setenv("BRAINPREP_AMBIENT", "should-not-reach-bet")

	dump := filepath.Join(t.TempDir(), "bet.env")
	script := "#!/bin/sh\nenv > " + dump + "\ntouch \"$2.nii.gz\"\n"
	testsupport.WriteFile(t, filepath.Join(cfg.Tools.FSLDir, "bin", "bet"), []byte(script))
	if err := os.Chmod(filepath.Join(cfg.Tools.FSLDir, "bin", "bet"), 0o755); err != nil {
		t.Fatalf("chmod bet stub: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(resolver.NIfTIRoot(), "P1", "s", "T1.nii.gz"), []byte("x"))

	handler := skullstrip.NewHandler(cfg, resolver, services.NewExecutor(), logging.NewNop())
	results, err := handler.Run(context.Background(), "P1")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(results) != 1 || results[0].Status != stage.StatusSucceeded {
		t.Fatalf("expected one succeeded result, got %+v", results)
	}

	data, err := os.ReadFile(dump)
	if err != nil {
		t.Fatalf("read env dump: %v", err)
	}
	// the shell itself may export these
	allowed := map[string]bool{"FSLDIR": true, "FSLOUTPUTTYPE": true, "PATH": true, "PWD": true, "OLDPWD": true, "SHLVL": true, "_": true}
	seen := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if !allowed[key] {
			t.Fatalf("unexpected variable %q in bet environment:\n%s", key, data)
		}
		seen[key] = value
	}
	if seen["FSLDIR"] != cfg.Tools.FSLDir || seen["FSLOUTPUTTYPE"] != "NIFTI_GZ" {
		t.Fatalf("expected FSL variables, got %v", seen)
	}
	if !strings.HasPrefix(seen["PATH"], filepath.Join(cfg.Tools.FSLDir, "bin")) {
		t.Fatalf("expected fsl bin first on PATH, got %q", seen["PATH"])
	}
}
