package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"brainprep/internal/cohort"
	"brainprep/internal/config"
	"brainprep/internal/logging"
	"brainprep/internal/manifest"
	"brainprep/internal/notifications"
	"brainprep/internal/services"
	"brainprep/internal/stage"
)

// ErrWorkspaceLocked is returned when another run holds the workspace lock.
var ErrWorkspaceLocked = errors.New("another brainprep run is active")

// Request selects what a run processes.
type Request struct {
	// Patients restricts the run; empty means every eligible patient.
	Patients []string
	// Stages restricts the run; empty means every stage.
	Stages []stage.Name
	// Cohort overrides the configured eligible set.
	Cohort *cohort.Cohort
}

// Manager coordinates stage handlers over patients and records every result.
type Manager struct {
	cfg      *config.Config
	store    *manifest.Store
	logger   *slog.Logger
	handlers map[stage.Name]stage.Handler
	notifier notifications.Service
	newRunID func() string
}

// NewManager constructs a workflow manager for the given handlers.
func NewManager(cfg *config.Config, store *manifest.Store, logger *slog.Logger, handlers ...stage.Handler) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	byName := make(map[stage.Name]stage.Handler, len(handlers))
	for _, handler := range handlers {
		if handler != nil {
			byName[handler.Name()] = handler
		}
	}
	return &Manager{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		handlers: byName,
		newRunID: uuid.NewString,
	}
}

// SetNotifier publishes run outcomes through n once each run is finalized.
func (m *Manager) SetNotifier(n notifications.Service) {
	m.notifier = n
}

// Handlers returns the registered handlers in canonical order.
func (m *Manager) Handlers() []stage.Handler {
	handlers := make([]stage.Handler, 0, len(m.handlers))
	for _, name := range stage.Names() {
		if handler, ok := m.handlers[name]; ok {
			handlers = append(handlers, handler)
		}
	}
	return handlers
}

// Run processes the request and returns the report. The report is non-nil
// whenever a manifest run was created, including on cancellation.
func (m *Manager) Run(ctx context.Context, req Request) (*Report, error) {
	stages, err := m.selectStages(req.Stages)
	if err != nil {
		return nil, err
	}

	if err := m.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	lock := flock.New(m.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrWorkspaceLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			m.logger.Warn("failed to release workspace lock", logging.Error(err))
		}
	}()

	eligible := req.Cohort
	if eligible == nil {
		eligible, err = cohort.Resolve(m.cfg.Paths.CohortFile, m.cfg.Paths.DICOMRoot)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "workflow", "resolve cohort", "", err)
		}
	}
	patients := req.Patients
	if len(patients) == 0 {
		patients = eligible.IDs()
	}

	runID := m.newRunID()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, m.logger)
	if _, err := m.store.CreateRun(ctx, runID, stages, len(patients)); err != nil {
		return nil, fmt.Errorf("create manifest run: %w", err)
	}

	report := newReport(runID, stages, patients)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("patients", len(patients)),
		logging.Any("stages", stages),
	)

	runErr := m.process(ctx, logger, report, eligible, patients, stages)
	report.FinishedAt = time.Now().UTC()

	status := manifest.RunCompleted
	switch {
	case runErr != nil && ctx.Err() != nil:
		status = manifest.RunCanceled
	case runErr != nil:
		status = manifest.RunFailed
	}
	counts := report.Counts()
	if err := m.store.FinishRun(context.WithoutCancel(ctx), runID, status, counts, runErr); err != nil {
		logger.Error("failed to finalize manifest run", logging.Error(err))
		if runErr == nil {
			runErr = fmt.Errorf("finalize manifest run: %w", err)
		}
	}

	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("status", string(status)),
		logging.Int("succeeded", counts.Succeeded),
		logging.Int("skipped", counts.Skipped),
		logging.Int("failed", counts.Failed),
		logging.Duration("duration", report.Duration()),
	)
	m.notify(context.WithoutCancel(ctx), logger, report, status, runErr)
	return report, runErr
}

func (m *Manager) notify(ctx context.Context, logger *slog.Logger, report *Report, status manifest.RunStatus, runErr error) {
	if m.notifier == nil {
		return
	}
	var err error
	if status == manifest.RunFailed {
		err = m.notifier.NotifyRunFailed(ctx, report.RunID, runErr)
	} else {
		counts := report.Counts()
		err = m.notifier.NotifyRunCompleted(ctx, notifications.RunSummary{
			RunID:     report.RunID,
			Status:    string(status),
			Patients:  len(report.Patients),
			Succeeded: counts.Succeeded,
			Skipped:   counts.Skipped,
			Failed:    counts.Failed,
			Duration:  report.Duration(),
		})
	}
	if err != nil {
		logging.WarnWithContext(logger, "run notification failed", "notification_failure",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run outcome not delivered to ntfy"),
		)
	}
}

func (m *Manager) process(ctx context.Context, logger *slog.Logger, report *Report, eligible *cohort.Cohort, patients []string, stages []stage.Name) error {
	for _, patient := range patients {
		if !eligible.Contains(patient) {
			logger.Info("patient not in cohort", logging.Patient(patient))
			result := stage.NewRecorder(stages[0], patient).Skipped("", "", stage.ReasonNotInCohort)
			if err := m.record(ctx, report, result); err != nil {
				return err
			}
			continue
		}
		for _, name := range stages {
			if err := ctx.Err(); err != nil {
				return err
			}
			results, stageErr := m.runStage(ctx, m.handlers[name], patient)
			for _, result := range results {
				if err := m.record(ctx, report, result); err != nil {
					return err
				}
			}
			if stageErr != nil {
				return stageErr
			}
		}
	}
	return nil
}

func (m *Manager) runStage(ctx context.Context, handler stage.Handler, patient string) ([]stage.Result, error) {
	name := handler.Name()
	stageCtx := services.WithStage(services.WithPatientID(ctx, patient), string(name))
	stageLogger := logging.WithContext(stageCtx, m.logger)
	if aware, ok := handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("label", name.Label()),
	)
	started := time.Now()
	results, err := handler.Run(stageCtx, patient)

	var counts manifest.Counts
	for _, result := range results {
		counts.Add(result.Status)
	}
	if err != nil {
		stageLogger.Error("stage interrupted",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.Error(err),
		)
		return results, err
	}
	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("succeeded", counts.Succeeded),
		logging.Int("skipped", counts.Skipped),
		logging.Int("failed", counts.Failed),
		logging.Duration("duration", time.Since(started)),
	)
	return results, nil
}

func (m *Manager) record(ctx context.Context, report *Report, result stage.Result) error {
	report.Add(result)
	if _, err := m.store.AppendResult(context.WithoutCancel(ctx), report.RunID, result); err != nil {
		return fmt.Errorf("record manifest entry: %w", err)
	}
	return nil
}

func (m *Manager) selectStages(requested []stage.Name) ([]stage.Name, error) {
	want := make(map[stage.Name]bool, len(requested))
	for _, name := range requested {
		if !slices.Contains(stage.Names(), name) {
			return nil, fmt.Errorf("unknown stage %q", name)
		}
		want[name] = true
	}
	var stages []stage.Name
	for _, name := range stage.Names() {
		if len(requested) > 0 && !want[name] {
			continue
		}
		if _, ok := m.handlers[name]; !ok {
			if len(requested) > 0 {
				return nil, fmt.Errorf("stage %s has no handler", name)
			}
			continue
		}
		stages = append(stages, name)
	}
	if len(stages) == 0 {
		return nil, errors.New("no stages selected")
	}
	return stages, nil
}
