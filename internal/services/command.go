package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Command describes one external tool invocation.
type Command struct {
	Binary string
	Args   []string
	// Env entries are appended to the inherited process environment unless
	// ReplaceEnv is set, in which case they are the whole environment.
	Env        []string
	ReplaceEnv bool
	Dir        string
}

// String renders the command line for logs.
func (c Command) String() string {
	parts := append([]string{c.Binary}, c.Args...)
	return strings.Join(parts, " ")
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, cmd Command, onOutput func(string)) error
}

// NewExecutor returns an Executor that spawns real processes.
func NewExecutor() Executor {
	return commandExecutor{}
}

// RunTool executes cmd under an optional timeout and classifies the failure.
// Output lines are forwarded to onOutput; the last lines are kept for the
// error message.
func RunTool(ctx context.Context, executor Executor, stage string, cmd Command, timeout time.Duration, onOutput func(string)) error {
	if executor == nil {
		executor = commandExecutor{}
	}
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tail := newTailBuffer(5)
	err := executor.Run(runCtx, cmd, func(line string) {
		tail.add(line)
		if onOutput != nil {
			onOutput(line)
		}
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return Wrap(ErrTimeout, stage, cmd.Binary, fmt.Sprintf("exceeded %s", timeout), err)
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return Wrap(ErrConfiguration, stage, cmd.Binary, "binary not found", err)
	}
	message := "command failed"
	if detail := tail.String(); detail != "" {
		message = "command failed: " + detail
	}
	return Wrap(ErrExternalTool, stage, cmd.Binary, message, err)
}

type tailBuffer struct {
	mu    sync.Mutex
	limit int
	lines []string
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.limit {
		t.lines = t.lines[len(t.lines)-t.limit:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, " | ")
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, command Command, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, command.Binary, command.Args...) //nolint:gosec
	cmd.Dir = command.Dir
	switch {
	case command.ReplaceEnv:
		cmd.Env = append([]string{}, command.Env...)
	case len(command.Env) > 0:
		cmd.Env = append(os.Environ(), command.Env...)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once
	var forwardMu sync.Mutex

	forward := func(line string) {
		if onOutput == nil {
			return
		}
		forwardMu.Lock()
		defer forwardMu.Unlock()
		onOutput(line)
	}
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}
	return cmd.Wait()
}
