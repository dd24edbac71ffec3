package testsupport

import (
	"context"
	"sync"

	"brainprep/internal/services"
)

// RecordingExecutor records every command and runs an optional callback in
// place of the real process.
type RecordingExecutor struct {
	mu       sync.Mutex
	commands []services.Command
	// Handle simulates the tool; a nil Handle succeeds without side effects.
	Handle func(ctx context.Context, cmd services.Command) error
}

// Run implements services.Executor.
func (r *RecordingExecutor) Run(ctx context.Context, cmd services.Command, onOutput func(string)) error {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	handle := r.Handle
	r.mu.Unlock()
	if onOutput != nil {
		onOutput("stub " + cmd.Binary)
	}
	if handle == nil {
		return nil
	}
	return handle(ctx, cmd)
}

// Commands returns a copy of the recorded commands.
func (r *RecordingExecutor) Commands() []services.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]services.Command(nil), r.commands...)
}
