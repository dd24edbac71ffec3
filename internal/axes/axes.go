// Package axes reorders skull-stripped volumes so the axis with the fewest
// voxels is axis 2, the slice axis expected by the PNG renderer. Volumes
// already in that layout are copied byte for byte.
package axes

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"brainprep/internal/config"
	"brainprep/internal/fileutil"
	"brainprep/internal/logging"
	"brainprep/internal/nifti"
	"brainprep/internal/paths"
	"brainprep/internal/services"
	"brainprep/internal/stage"
)

// Handler runs the axis-correction stage.
type Handler struct {
	cfg      *config.Config
	resolver *paths.Resolver
	logger   *slog.Logger
}

// NewHandler builds an axis-correction handler.
func NewHandler(cfg *config.Config, resolver *paths.Resolver, logger *slog.Logger) *Handler {
	return &Handler{cfg: cfg, resolver: resolver, logger: logging.NewComponentLogger(logger, "axes")}
}

func (h *Handler) Name() stage.Name { return stage.Axes }

func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logging.NewComponentLogger(logger, "axes")
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if h == nil || h.cfg == nil {
		return stage.Unhealthy(string(stage.Axes), "stage not configured")
	}
	return stage.Healthy(string(stage.Axes))
}

// Run corrects every brain volume of patient.
func (h *Handler) Run(ctx context.Context, patient string) ([]stage.Result, error) {
	rec := stage.NewRecorder(stage.Axes, patient)
	inputDir := paths.PatientDir(h.resolver.BrainRoot(), patient)
	logger := logging.WithContext(ctx, h.logger)

	volumes, err := stage.FindFiles(inputDir, h.cfg.Tags.VolumeSuffix, nil)
	if err != nil {
		return []stage.Result{rec.Failed(time.Now(), inputDir, "", services.Wrap(services.ErrTransient, string(stage.Axes), "scan inputs", "", err))}, nil
	}
	if len(volumes) == 0 {
		logger.Info("no volumes to correct", logging.String(logging.FieldInput, inputDir))
		return []stage.Result{rec.Skipped(inputDir, "", stage.ReasonNoInputs)}, nil
	}

	results := make([]stage.Result, 0, len(volumes))
	for _, volume := range volumes {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, h.correct(logger, rec, volume))
	}
	return results, nil
}

func (h *Handler) correct(logger *slog.Logger, rec *stage.Recorder, input string) stage.Result {
	started := time.Now()
	output := h.resolver.AxesOutput(input)
	logger = logger.With(logging.String(logging.FieldInput, input), logging.String(logging.FieldOutput, output))

	if stage.Exists(output) {
		logger.Debug("volume already corrected")
		return rec.Skipped(input, output, stage.ReasonOutputExists)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return rec.Failed(started, input, output, services.Wrap(services.ErrTransient, string(stage.Axes), "create output", "", err))
	}

	action, err := Correct(input, output)
	if err != nil {
		logging.ErrorWithContext(logger, "axis correction failed", "axes_failure", logging.Error(err))
		return rec.Failed(started, input, output, err)
	}
	logger.Info("volume axes corrected",
		logging.String(logging.FieldEventType, "axes_complete"),
		logging.String("action", action.String()),
	)
	return rec.Succeeded(started, input, output)
}

// Action describes what Correct did with a volume.
type Action struct {
	Shape   []int
	Swapped bool
	Axis    int
}

func (a Action) String() string {
	if !a.Swapped {
		return fmt.Sprintf("copied %v", a.Shape)
	}
	return fmt.Sprintf("swapped axis %d with axis 2 of %v", a.Axis, a.Shape)
}

// Correct writes the canonical form of input to output. When axis 2 holds the
// minimum extent (ties included) the file is copied verbatim; otherwise the
// lowest-index minimal axis is swapped with axis 2.
func Correct(input, output string) (Action, error) {
	header, err := nifti.ReadHeader(input)
	if err != nil {
		return Action{}, services.Wrap(services.ErrValidation, string(stage.Axes), "read header", "", err)
	}
	shape := header.Shape()
	canonical, err := nifti.IsCanonical(shape)
	if err != nil {
		return Action{Shape: shape}, services.Wrap(services.ErrValidation, string(stage.Axes), "inspect shape", "", err)
	}
	if canonical {
		if err := fileutil.CopyFileVerified(input, output); err != nil {
			return Action{Shape: shape}, services.Wrap(services.ErrTransient, string(stage.Axes), "copy", "", err)
		}
		return Action{Shape: shape, Axis: 2}, nil
	}

	axis, err := nifti.MinAxis(shape)
	if err != nil {
		return Action{Shape: shape}, services.Wrap(services.ErrValidation, string(stage.Axes), "inspect shape", "", err)
	}
	vol, err := nifti.Read(input)
	if err != nil {
		return Action{Shape: shape}, services.Wrap(services.ErrValidation, string(stage.Axes), "read volume", "", err)
	}
	swapped, err := vol.SwapAxes(axis, 2)
	if err != nil {
		return Action{Shape: shape}, services.Wrap(services.ErrValidation, string(stage.Axes), "swap axes", "", err)
	}
	if err := nifti.Write(output, swapped); err != nil {
		return Action{Shape: shape}, services.Wrap(services.ErrTransient, string(stage.Axes), "write volume", "", err)
	}
	return Action{Shape: shape, Swapped: true, Axis: axis}, nil
}
