package services_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"brainprep/internal/services"
)

type stubExecutor struct {
	lines []string
	err   error
	block bool
	calls []services.Command
}

func (s *stubExecutor) Run(ctx context.Context, cmd services.Command, onOutput func(string)) error {
	s.calls = append(s.calls, cmd)
	for _, line := range s.lines {
		onOutput(line)
	}
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.err
}

func TestRunToolSuccessForwardsOutput(t *testing.T) {
	exec := &stubExecutor{lines: []string{"Compress: 1 file", "Done"}}
	var got []string
	cmd := services.Command{Binary: "dcm2niix", Args: []string{"-z", "y"}}
	if err := services.RunTool(context.Background(), exec, "convert", cmd, 0, func(line string) {
		got = append(got, line)
	}); err != nil {
		t.Fatalf("RunTool returned error: %v", err)
	}
	if len(got) != 2 || got[1] != "Done" {
		t.Fatalf("unexpected forwarded output: %v", got)
	}
	if len(exec.calls) != 1 || exec.calls[0].String() != "dcm2niix -z y" {
		t.Fatalf("unexpected calls: %+v", exec.calls)
	}
}

func TestRunToolFailureIncludesOutputTail(t *testing.T) {
	exec := &stubExecutor{lines: []string{"line1", "ERROR: bad input"}, err: errors.New("exit status 1")}
	err := services.RunTool(context.Background(), exec, "skullstrip", services.Command{Binary: "bet"}, 0, nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "ERROR: bad input") {
		t.Fatalf("expected output tail in error, got %q", err)
	}
}

func TestRunToolTimeout(t *testing.T) {
	exec := &stubExecutor{block: true}
	err := services.RunTool(context.Background(), exec, "png", services.Command{Binary: "med2image"}, 10*time.Millisecond, nil)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
}

func TestRunToolParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := &stubExecutor{block: true}
	err := services.RunTool(ctx, exec, "png", services.Command{Binary: "med2image"}, time.Minute, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCommandExecutorRunsProcess(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "tool")
	body := "#!/bin/sh\necho \"$GREETING $1\"\necho oops >&2\nexit 0\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	var lines []string
	cmd := services.Command{Binary: script, Args: []string{"world"}, Env: []string{"GREETING=hello"}}
	if err := services.RunTool(context.Background(), services.NewExecutor(), "test", cmd, 0, func(line string) {
		lines = append(lines, line)
	}); err != nil {
		t.Fatalf("RunTool returned error: %v", err)
	}
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "hello world") || !strings.Contains(joined, "oops") {
		t.Fatalf("expected stdout and stderr lines, got %q", joined)
	}
}

func TestCommandExecutorReplaceEnvDropsInherited(t *testing.T) {
	t.Setenv("BRAINPREP_INHERITED", "yes")
	script := filepath.Join(t.TempDir(), "tool")
	body := "#!/bin/sh\necho \"inherited=$BRAINPREP_INHERITED given=$GIVEN\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	run := func(replace bool) string {
		var lines []string
		cmd := services.Command{Binary: script, Env: []string{"GIVEN=1"}, ReplaceEnv: replace}
		if err := services.RunTool(context.Background(), services.NewExecutor(), "test", cmd, 0, func(line string) {
			lines = append(lines, line)
		}); err != nil {
			t.Fatalf("RunTool returned error: %v", err)
		}
		return strings.Join(lines, "\n")
	}

	if got := run(true); got != "inherited= given=1" {
		t.Fatalf("expected only the given environment, got %q", got)
	}
	if got := run(false); got != "inherited=yes given=1" {
		t.Fatalf("expected inherited environment, got %q", got)
	}
}

func TestCommandExecutorMissingBinary(t *testing.T) {
	cmd := services.Command{Binary: "brainprep-definitely-missing-binary"}
	err := services.RunTool(context.Background(), services.NewExecutor(), "convert", cmd, 0, nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
}
