// Package skullstrip removes non-brain tissue from converted volumes with FSL
// bet. Volumes are selected by a modality substring in their path.
package skullstrip

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"brainprep/internal/config"
	"brainprep/internal/deps"
	"brainprep/internal/logging"
	"brainprep/internal/paths"
	"brainprep/internal/services"
	"brainprep/internal/stage"
)

// Handler runs the skull-strip stage.
type Handler struct {
	cfg      *config.Config
	resolver *paths.Resolver
	exec     services.Executor
	logger   *slog.Logger
}

// NewHandler builds a skull-strip handler.
func NewHandler(cfg *config.Config, resolver *paths.Resolver, exec services.Executor, logger *slog.Logger) *Handler {
	if exec == nil {
		exec = services.NewExecutor()
	}
	return &Handler{
		cfg:      cfg,
		resolver: resolver,
		exec:     exec,
		logger:   logging.NewComponentLogger(logger, "skullstrip"),
	}
}

func (h *Handler) Name() stage.Name { return stage.SkullStrip }

func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logging.NewComponentLogger(logger, "skullstrip")
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	name := string(stage.SkullStrip)
	if h == nil || h.cfg == nil {
		return stage.Unhealthy(name, "stage not configured")
	}
	return stage.BinaryHealth(name, deps.ResolveBet(h.cfg.Tools.Bet, h.cfg.Tools.FSLDir))
}

// Run strips every selected volume of patient.
func (h *Handler) Run(ctx context.Context, patient string) ([]stage.Result, error) {
	rec := stage.NewRecorder(stage.SkullStrip, patient)
	inputDir := paths.PatientDir(h.resolver.NIfTIRoot(), patient)
	logger := logging.WithContext(ctx, h.logger)

	modality := h.cfg.Tools.Modality
	volumes, err := stage.FindFiles(inputDir, h.cfg.Tags.VolumeSuffix, func(path string) bool {
		return strings.Contains(path, modality)
	})
	if err != nil {
		return []stage.Result{rec.Failed(time.Now(), inputDir, "", services.Wrap(services.ErrTransient, string(stage.SkullStrip), "scan inputs", "", err))}, nil
	}
	if len(volumes) == 0 {
		logger.Info("no volumes to skull strip",
			logging.String(logging.FieldInput, inputDir),
			logging.String("modality", modality),
		)
		return []stage.Result{rec.Skipped(inputDir, "", stage.ReasonNoInputs)}, nil
	}

	results := make([]stage.Result, 0, len(volumes))
	for _, volume := range volumes {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := h.strip(ctx, logger, rec, volume)
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (h *Handler) strip(ctx context.Context, logger *slog.Logger, rec *stage.Recorder, volume string) (stage.Result, error) {
	started := time.Now()
	outBase, err := h.resolver.BrainOutput(volume)
	if err != nil {
		return rec.Failed(started, volume, "", services.Wrap(services.ErrValidation, string(stage.SkullStrip), "resolve output", "", err)), nil
	}
	output := outBase + h.cfg.Tags.VolumeSuffix
	logger = logger.With(logging.String(logging.FieldInput, volume), logging.String(logging.FieldOutput, output))

	if stage.Exists(output) {
		logger.Debug("volume already skull stripped")
		return rec.Skipped(volume, output, stage.ReasonOutputExists), nil
	}
	if err := os.MkdirAll(filepath.Dir(outBase), 0o755); err != nil {
		return rec.Failed(started, volume, output, services.Wrap(services.ErrTransient, string(stage.SkullStrip), "create output", "", err)), nil
	}

	logger.Info("skull stripping volume", logging.String(logging.FieldEventType, "skullstrip_start"))
	cmd := services.Command{
		Binary:     deps.ResolveBet(h.cfg.Tools.Bet, h.cfg.Tools.FSLDir),
		Args:       []string{volume, outBase},
		Env:        Environment(h.cfg.Tools),
		ReplaceEnv: true,
	}
	err = services.RunTool(ctx, h.exec, string(stage.SkullStrip), cmd, h.cfg.ToolTimeout(), func(line string) {
		logger.Debug("bet output", logging.String("line", line))
	})
	if err != nil {
		if ctx.Err() != nil {
			return rec.Failed(started, volume, output, err), err
		}
		logging.ErrorWithContext(logger, "skull strip failed", "skullstrip_failure", logging.Error(err))
		return rec.Failed(started, volume, output, err), nil
	}
	return rec.Succeeded(started, volume, output), nil
}

// Environment returns the FSL variables bet needs. FSL's bin directory is
// put first on PATH so bet's helper programs resolve.
func Environment(tools config.Tools) []string {
	env := []string{
		"FSLDIR=" + tools.FSLDir,
		"FSLOUTPUTTYPE=" + tools.FSLOutputType,
	}
	fslBin := filepath.Join(tools.FSLDir, "bin")
	if current := os.Getenv("PATH"); current != "" {
		env = append(env, "PATH="+fslBin+string(os.PathListSeparator)+current)
	} else {
		env = append(env, "PATH="+fslBin)
	}
	return env
}
