package conversion_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"brainprep/internal/config"
	"brainprep/internal/conversion"
	"brainprep/internal/logging"
	"brainprep/internal/paths"
	"brainprep/internal/services"
	"brainprep/internal/stage"
	"brainprep/internal/testsupport"
)

func newHandler(t *testing.T, exec services.Executor) (*conversion.Handler, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return conversion.NewHandler(cfg, paths.NewResolver(cfg), exec, logging.NewNop()), cfg
}

func TestRunInvokesConverterPerSeries(t *testing.T) {
	exec := &testsupport.RecordingExecutor{}
	handler, cfg := newHandler(t, exec)
	root := cfg.Paths.DICOMRoot
	first := testsupport.WriteSeries(t, root, "P1", "06-08-1997-MRI BRAIN", "5-AX T1 POST")
	second := testsupport.WriteSeries(t, root, "P1", "06-08-1997-MRI BRAIN", "7-AX FLAIR")

	results, err := handler.Run(context.Background(), "P1")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, res := range results {
		if res.Status != stage.StatusSucceeded {
			t.Fatalf("unexpected result: %+v", res)
		}
	}

	commands := exec.Commands()
	if len(commands) != 2 {
		t.Fatalf("expected 2 converter invocations, got %d", len(commands))
	}
	wantOut := strings.ReplaceAll(strings.ReplaceAll(first, "TCGA-GBM", "TCGA-GBM[nii]"), " ", "_")
	want := []string{"-z", "y", "-f", "%p_%s", "-o", wantOut, first}
	if diff := cmp.Diff(want, commands[0].Args); diff != "" {
		t.Fatalf("unexpected converter args (-want +got):\n%s", diff)
	}
	if commands[1].Args[len(commands[1].Args)-1] != second {
		t.Fatalf("expected second series converted second, got %v", commands[1].Args)
	}
	if !stage.Exists(wantOut) {
		t.Fatalf("expected output directory %s to exist", wantOut)
	}
}

func TestRunContinuesAfterFailure(t *testing.T) {
	exec := &testsupport.RecordingExecutor{Handle: func(ctx context.Context, cmd services.Command) error {
		if strings.Contains(cmd.Args[len(cmd.Args)-1], "broken") {
			return errors.New("exit status 1")
		}
		return nil
	}}
	handler, cfg := newHandler(t, exec)
	testsupport.WriteSeries(t, cfg.Paths.DICOMRoot, "P1", "study", "a-broken")
	testsupport.WriteSeries(t, cfg.Paths.DICOMRoot, "P1", "study", "b-good")

	results, err := handler.Run(context.Background(), "P1")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != stage.StatusFailed || results[0].ErrorKind != "external_tool" {
		t.Fatalf("expected first series to fail, got %+v", results[0])
	}
	if !strings.Contains(results[0].Input, "a-broken") {
		t.Fatalf("expected failing path recorded, got %q", results[0].Input)
	}
	if results[1].Status != stage.StatusSucceeded {
		t.Fatalf("expected second series to succeed, got %+v", results[1])
	}
}

func TestRunSkipsConvertedSeries(t *testing.T) {
	exec := &testsupport.RecordingExecutor{}
	handler, cfg := newHandler(t, exec)
	series := testsupport.WriteSeries(t, cfg.Paths.DICOMRoot, "P1", "study", "series")
	out := paths.NewResolver(cfg).SeriesOutputDir(series)
	testsupport.WriteFile(t, filepath.Join(out, "series_5.nii.gz"), []byte("x"))

	results, err := handler.Run(context.Background(), "P1")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(results) != 1 || results[0].Status != stage.StatusSkipped || results[0].Reason != stage.ReasonOutputExists {
		t.Fatalf("expected skipped result, got %+v", results)
	}
	if len(exec.Commands()) != 0 {
		t.Fatal("expected converter not to run")
	}
}

func TestRunWithoutSeries(t *testing.T) {
	handler, cfg := newHandler(t, &testsupport.RecordingExecutor{})
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DICOMRoot, "P1", "notes.txt"), []byte("x"))

	results, err := handler.Run(context.Background(), "P1")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(results) != 1 || results[0].Reason != stage.ReasonNoInputs {
		t.Fatalf("expected no-input skip, got %+v", results)
	}
}

func TestRunMissingPatientFails(t *testing.T) {
	handler, _ := newHandler(t, &testsupport.RecordingExecutor{})
	results, err := handler.Run(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(results) != 1 || results[0].Status != stage.StatusFailed || results[0].ErrorKind != "not_found" {
		t.Fatalf("expected not-found failure, got %+v", results)
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &testsupport.RecordingExecutor{Handle: func(context.Context, services.Command) error {
		cancel()
		return context.Canceled
	}}
	handler, cfg := newHandler(t, exec)
	testsupport.WriteSeries(t, cfg.Paths.DICOMRoot, "P1", "study", "a")
	testsupport.WriteSeries(t, cfg.Paths.DICOMRoot, "P1", "study", "b")

	results, err := handler.Run(ctx, "P1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected processing to stop after the in-flight series, got %d results", len(results))
	}
	if len(exec.Commands()) != 1 {
		t.Fatalf("expected one invocation, got %d", len(exec.Commands()))
	}
}

func TestHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("dcm2niix"))
	handler := conversion.NewHandler(cfg, paths.NewResolver(cfg), nil, nil)
	if health := handler.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy stage, got %+v", health)
	}
	cfg.Tools.Converter = "definitely-missing-converter"
	if health := handler.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy stage for missing converter")
	}
}
