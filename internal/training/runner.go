package training

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"brainprep/internal/logging"
	"brainprep/internal/services"
)

const stageName = "train"

// Runner launches the trainer process.
type Runner struct {
	exec   services.Executor
	logger *slog.Logger
}

// NewRunner builds a Runner. A nil executor runs real processes.
func NewRunner(exec services.Executor, logger *slog.Logger) *Runner {
	if exec == nil {
		exec = services.NewExecutor()
	}
	return &Runner{exec: exec, logger: logging.NewComponentLogger(logger, "training")}
}

// Run invokes the trainer and blocks until it exits. Trainer output is
// forwarded to the log line by line.
func (r *Runner) Run(ctx context.Context, cfg *Config) error {
	if cfg == nil {
		return errors.New("training config is required")
	}
	if _, err := os.Stat(cfg.DataFile()); err != nil {
		marker := services.ErrValidation
		if errors.Is(err, fs.ErrNotExist) {
			marker = services.ErrNotFound
		}
		return services.Wrap(marker, stageName, "locate data", cfg.DataFile(), err)
	}
	if err := os.MkdirAll(cfg.OutputPath(), 0o755); err != nil {
		return fmt.Errorf("create output path: %w", err)
	}

	command := cfg.Command()
	cmd := services.Command{
		Binary: command[0],
		Args:   append(command[1:], cfg.Args()...),
		Env:    cfg.Environment(),
	}
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("training started",
		logging.String(logging.FieldEventType, "train_start"),
		logging.String("command", cmd.String()),
		logging.Int("epochs", cfg.Epochs()),
		logging.Int("batch_size", cfg.BatchSize()),
	)

	started := time.Now()
	err := services.RunTool(ctx, r.exec, stageName, cmd, 0, func(line string) {
		logger.Info("trainer output", logging.String("line", line))
	})
	if err != nil {
		logging.ErrorWithContext(logger, "training failed", "train_failure", logging.Error(err))
		return err
	}
	logger.Info("training completed",
		logging.String(logging.FieldEventType, "train_complete"),
		logging.String("model", cfg.ModelFile()),
		logging.Duration("duration", time.Since(started)),
	)
	return nil
}
