package main

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"brainprep/internal/services"
	"brainprep/internal/testsupport"
)

func TestTrainCommandDryRunAppliesFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"train", "--dry-run", "--epochs", "3", "--use-pconv"}, env.configPath)
	if err != nil {
		t.Fatalf("train --dry-run: %v", err)
	}
	requireContains(t, out, "--epochs 3")
	requireContains(t, out, "--use_pconv")
	requireContains(t, out, "KMP_BLOCKTIME=1")
	requireContains(t, out, "--bz 128")
}

func TestTrainCommandRunsTrainer(t *testing.T) {
	env := setupCLITestEnv(t)
	dataFile := filepath.Join(env.cfg.Training.DataPath, env.cfg.Training.DataFilename)
	testsupport.WriteFile(t, dataFile, []byte("hdf5"))

	exec := &testsupport.RecordingExecutor{Handle: func(context.Context, services.Command) error { return nil }}
	out, _, err := runCLIWithExecutor(t, exec, []string{"train", "--batch-size", "16"}, env.configPath)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	requireContains(t, out, "Model saved to")

	commands := exec.Commands()
	if len(commands) != 1 {
		t.Fatalf("expected one trainer invocation, got %d", len(commands))
	}
	cmd := commands[0]
	if cmd.Binary != "python" || cmd.Args[0] != "train.py" {
		t.Fatalf("unexpected trainer command %s", cmd.String())
	}
	idx := slices.Index(cmd.Args, "--bz")
	if idx < 0 || cmd.Args[idx+1] != "16" {
		t.Fatalf("expected --bz 16 in %v", cmd.Args)
	}
}

func TestTrainCommandMissingDataFile(t *testing.T) {
	env := setupCLITestEnv(t)
	exec := &testsupport.RecordingExecutor{}
	_, _, err := runCLIWithExecutor(t, exec, []string{"train"}, env.configPath)
	if err == nil {
		t.Fatal("expected missing data file to fail")
	}
	requireContains(t, err.Error(), env.cfg.Training.DataFilename)
	if len(exec.Commands()) != 0 {
		t.Fatal("trainer must not run without data")
	}
}

func TestTrainCommandRejectsInvalidOverrides(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"train", "--dry-run", "--epochs", "0"}, env.configPath); err == nil {
		t.Fatal("expected zero epochs to be rejected")
	}
}
