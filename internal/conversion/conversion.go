// Package conversion turns each DICOM series of a patient into compressed
// NIfTI volumes by invoking an external converter (dcm2niix by default).
//
// Series directories are the second level below the patient directory
// (<root>/<patient>/<study>/<series>). Each maps to a directory in the NIfTI
// tree; a series whose output directory already holds a volume is skipped.
package conversion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"brainprep/internal/config"
	"brainprep/internal/dicomseries"
	"brainprep/internal/logging"
	"brainprep/internal/paths"
	"brainprep/internal/services"
	"brainprep/internal/stage"
)

// Handler runs the conversion stage.
type Handler struct {
	cfg      *config.Config
	resolver *paths.Resolver
	exec     services.Executor
	logger   *slog.Logger
	inspect  func(string) (dicomseries.Series, error)
}

// NewHandler builds a conversion handler.
func NewHandler(cfg *config.Config, resolver *paths.Resolver, exec services.Executor, logger *slog.Logger) *Handler {
	if exec == nil {
		exec = services.NewExecutor()
	}
	return &Handler{
		cfg:      cfg,
		resolver: resolver,
		exec:     exec,
		logger:   logging.NewComponentLogger(logger, "conversion"),
		inspect:  dicomseries.Inspect,
	}
}

func (h *Handler) Name() stage.Name { return stage.Convert }

// SetLogger swaps the handler logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logging.NewComponentLogger(logger, "conversion")
}

// HealthCheck verifies the converter binary and the DICOM root.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	name := string(stage.Convert)
	if h == nil || h.cfg == nil {
		return stage.Unhealthy(name, "stage not configured")
	}
	if info, err := os.Stat(h.resolver.SourceRoot()); err != nil || !info.IsDir() {
		return stage.Unhealthy(name, fmt.Sprintf("dicom root %s unavailable", h.resolver.SourceRoot()))
	}
	return stage.BinaryHealth(name, h.cfg.Tools.Converter)
}

// Run converts every series of patient.
func (h *Handler) Run(ctx context.Context, patient string) ([]stage.Result, error) {
	rec := stage.NewRecorder(stage.Convert, patient)
	patientDir := paths.PatientDir(h.resolver.SourceRoot(), patient)
	logger := logging.WithContext(ctx, h.logger)

	seriesDirs, err := ListSeries(patientDir)
	if err != nil {
		return []stage.Result{rec.Failed(time.Now(), patientDir, "", services.Wrap(services.ErrNotFound, string(stage.Convert), "list series", "", err))}, nil
	}
	if len(seriesDirs) == 0 {
		logging.WarnWithContext(logger, "no DICOM series found", "convert_no_series",
			logging.String(logging.FieldInput, patientDir),
			logging.String(logging.FieldImpact, "patient has no volumes for later stages"),
		)
		return []stage.Result{rec.Skipped(patientDir, "", stage.ReasonNoInputs)}, nil
	}

	results := make([]stage.Result, 0, len(seriesDirs))
	for _, seriesDir := range seriesDirs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := h.convertSeries(ctx, logger, rec, seriesDir)
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (h *Handler) convertSeries(ctx context.Context, logger *slog.Logger, rec *stage.Recorder, seriesDir string) (stage.Result, error) {
	started := time.Now()
	outDir := h.resolver.SeriesOutputDir(seriesDir)
	logger = logger.With(logging.String(logging.FieldInput, seriesDir), logging.String(logging.FieldOutput, outDir))

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return rec.Failed(started, seriesDir, outDir, services.Wrap(services.ErrTransient, string(stage.Convert), "create output", "", err)), nil
	}
	if HasVolume(outDir, h.cfg.Tags.VolumeSuffix) {
		logger.Debug("series already converted")
		return rec.Skipped(seriesDir, outDir, stage.ReasonOutputExists), nil
	}

	if series, err := h.inspect(seriesDir); err != nil {
		logger.Debug("series metadata unavailable", logging.Error(err))
	} else {
		logger.Debug("series metadata",
			logging.String("series", series.Label()),
			logging.Int("instances", series.Files),
			logging.String("series_uid", series.SeriesInstanceUID),
		)
	}

	logger.Info("converting dicom series", logging.String(logging.FieldEventType, "convert_start"))
	cmd := services.Command{
		Binary: h.cfg.Tools.Converter,
		Args:   []string{"-z", "y", "-f", h.cfg.Tools.ConverterPattern, "-o", outDir, seriesDir},
	}
	err := services.RunTool(ctx, h.exec, string(stage.Convert), cmd, h.cfg.ToolTimeout(), func(line string) {
		logger.Debug("converter output", logging.String("line", line))
	})
	if err != nil {
		if ctx.Err() != nil {
			return rec.Failed(started, seriesDir, outDir, err), err
		}
		logging.ErrorWithContext(logger, "series conversion failed", "convert_failure", logging.Error(err))
		return rec.Failed(started, seriesDir, outDir, err), nil
	}
	return rec.Succeeded(started, seriesDir, outDir), nil
}

// ListSeries returns the directories two levels below patientDir, sorted.
func ListSeries(patientDir string) ([]string, error) {
	studies, err := os.ReadDir(patientDir)
	if err != nil {
		return nil, err
	}
	var series []string
	for _, study := range studies {
		if !study.IsDir() || strings.HasPrefix(study.Name(), ".") {
			continue
		}
		studyDir := filepath.Join(patientDir, study.Name())
		entries, err := os.ReadDir(studyDir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
				series = append(series, filepath.Join(studyDir, entry.Name()))
			}
		}
	}
	sort.Strings(series)
	return series, nil
}

// HasVolume reports whether dir directly contains a file ending in suffix.
func HasVolume(dir, suffix string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), suffix) {
			return true
		}
	}
	return false
}
