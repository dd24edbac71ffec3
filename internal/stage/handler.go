package stage

import (
	"context"
	"log/slog"
)

// Handler describes the contract the workflow manager needs from each stage.
// Run processes one patient and returns one Result per input it considered.
// Per-input failures are Results; the returned error is reserved for
// conditions that must stop the batch, such as cancellation.
type Handler interface {
	Name() Name
	Run(ctx context.Context, patient string) ([]Result, error)
	HealthCheck(ctx context.Context) Health
}

// LoggerAware is implemented by handlers that accept a per-run logger.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
