// Package pngexport renders axis-corrected volumes to PNG slices with
// med2image.
package pngexport

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"brainprep/internal/config"
	"brainprep/internal/logging"
	"brainprep/internal/paths"
	"brainprep/internal/services"
	"brainprep/internal/stage"
)

// Handler runs the PNG export stage.
type Handler struct {
	cfg      *config.Config
	resolver *paths.Resolver
	exec     services.Executor
	logger   *slog.Logger
}

// NewHandler builds a PNG export handler.
func NewHandler(cfg *config.Config, resolver *paths.Resolver, exec services.Executor, logger *slog.Logger) *Handler {
	if exec == nil {
		exec = services.NewExecutor()
	}
	return &Handler{
		cfg:      cfg,
		resolver: resolver,
		exec:     exec,
		logger:   logging.NewComponentLogger(logger, "pngexport"),
	}
}

func (h *Handler) Name() stage.Name { return stage.PNG }

func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logging.NewComponentLogger(logger, "pngexport")
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	name := string(stage.PNG)
	if h == nil || h.cfg == nil {
		return stage.Unhealthy(name, "stage not configured")
	}
	return stage.BinaryHealth(name, h.cfg.Tools.Med2Image)
}

// Run renders every axis-corrected volume of patient.
func (h *Handler) Run(ctx context.Context, patient string) ([]stage.Result, error) {
	rec := stage.NewRecorder(stage.PNG, patient)
	inputDir := paths.PatientDir(h.resolver.AxesRoot(), patient)
	logger := logging.WithContext(ctx, h.logger)

	volumes, err := stage.FindFiles(inputDir, h.cfg.Tags.VolumeSuffix, nil)
	if err != nil {
		return []stage.Result{rec.Failed(time.Now(), inputDir, "", services.Wrap(services.ErrTransient, string(stage.PNG), "scan inputs", "", err))}, nil
	}
	if len(volumes) == 0 {
		logger.Info("no volumes to render", logging.String(logging.FieldInput, inputDir))
		return []stage.Result{rec.Skipped(inputDir, "", stage.ReasonNoInputs)}, nil
	}

	results := make([]stage.Result, 0, len(volumes))
	for _, volume := range volumes {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := h.render(ctx, logger, rec, volume)
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (h *Handler) render(ctx context.Context, logger *slog.Logger, rec *stage.Recorder, volume string) (stage.Result, error) {
	started := time.Now()
	outDir, filename := h.resolver.PNGOutput(volume)
	logger = logger.With(
		logging.String(logging.FieldInput, volume),
		logging.String(logging.FieldOutput, outDir),
		logging.String("filename", filename),
	)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return rec.Failed(started, volume, outDir, services.Wrap(services.ErrTransient, string(stage.PNG), "create output", "", err)), nil
	}
	if Rendered(outDir, filename) {
		logger.Debug("volume already rendered")
		return rec.Skipped(volume, outDir, stage.ReasonOutputExists), nil
	}

	logger.Info("rendering volume slices", logging.String(logging.FieldEventType, "png_start"))
	cmd := services.Command{
		Binary: h.cfg.Tools.Med2Image,
		Args:   []string{"-i", volume, "-d", outDir, "-o", filename},
	}
	err := services.RunTool(ctx, h.exec, string(stage.PNG), cmd, h.cfg.ToolTimeout(), func(line string) {
		logger.Debug("med2image output", logging.String("line", line))
	})
	if err != nil {
		if ctx.Err() != nil {
			return rec.Failed(started, volume, outDir, err), err
		}
		logging.ErrorWithContext(logger, "png export failed", "png_failure", logging.Error(err))
		return rec.Failed(started, volume, outDir, err), nil
	}
	return rec.Succeeded(started, volume, outDir), nil
}

// Rendered reports whether dir already holds a file named after filename's
// base; med2image suffixes each slice it writes.
func Rendered(dir, filename string) bool {
	base := strings.TrimSuffix(filename, ".png")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), base) {
			return true
		}
	}
	return false
}
