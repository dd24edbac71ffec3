package main

import (
	"cmp"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"brainprep/internal/deps"
	"brainprep/internal/manifest"
	"brainprep/internal/paths"
	"brainprep/internal/preflight"
	"brainprep/internal/stage"
	"brainprep/internal/workflow"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check directories, external tools, and the last run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			printSection := func(title string, lines []string) {
				for _, line := range renderSectionHeader(title, colorize) {
					fmt.Fprintln(out, line)
				}
				for _, line := range lines {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out)
			}

			printSection("Configuration", []string{
				renderStatusLine("Config", statusInfo, configPathDetail(ctx.configPath), colorize),
			})
			printSection("Paths", checkLines(preflight.RunAll(cfg), colorize))
			printSection("Stage Roots", stageRootLines(paths.NewResolver(cfg), colorize))
			printSection("Dependencies", dependencyLines(preflight.CheckSystemDeps(cfg), colorize))

			handlers := workflow.DefaultHandlers(cfg, ctx.executor, logger)
			healths := make([]stage.Health, 0, len(handlers))
			for _, handler := range handlers {
				healths = append(healths, handler.HealthCheck(cmd.Context()))
			}
			printSection("Stages", healthLines(healths, colorize))

			return ctx.withManifest(func(store *manifest.Store) error {
				run, err := store.LatestRun(cmd.Context())
				if err != nil {
					return err
				}
				printSection("Last Run", lastRunLines(run, colorize))
				return nil
			})
		},
	}
}

func configPathDetail(path string) string {
	if strings.TrimSpace(path) == "" {
		return "defaults"
	}
	return path
}

// stageRootLines lists the tree each stage writes to. Roots that do not exist
// yet are informational; stages create them on first output.
func stageRootLines(resolver *paths.Resolver, colorize bool) []string {
	roots := []struct{ label, dir string }{
		{"DICOM", resolver.SourceRoot()},
		{"NIfTI", resolver.NIfTIRoot()},
		{"Brain", resolver.BrainRoot()},
		{"Axes corrected", resolver.AxesRoot()},
		{"PNG", resolver.PNGRoot()},
	}
	lines := make([]string, 0, len(roots))
	for _, root := range roots {
		if info, err := os.Stat(root.dir); err == nil && info.IsDir() {
			lines = append(lines, renderStatusLine(root.label, statusOK, root.dir, colorize))
			continue
		}
		lines = append(lines, renderStatusLine(root.label, statusInfo, root.dir+" (not created yet)", colorize))
	}
	return lines
}

func checkLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	return lines
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	missing := make([]string, 0)
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if where := cmp.Or(dep.Path, dep.Command); where != "" {
				message = fmt.Sprintf("Ready (command: %s)", where)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		} else {
			missing = append(missing, dep.Name)
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func healthLines(healths []stage.Health, colorize bool) []string {
	lines := make([]string, 0, len(healths))
	for _, health := range healths {
		if health.Ready {
			lines = append(lines, renderStatusLine(health.Name, statusOK, "Ready", colorize))
			continue
		}
		lines = append(lines, renderStatusLine(health.Name, statusError, health.Detail, colorize))
	}
	return lines
}

func lastRunLines(run *manifest.Run, colorize bool) []string {
	if run == nil {
		return []string{renderStatusLine("Run", statusInfo, "No runs recorded", colorize)}
	}
	lines := []string{
		renderStatusLine("Run", runStatusKind(run.Status), fmt.Sprintf("%s %s", shortID(run.ID), run.Status), colorize),
		renderStatusLine("Started", statusInfo, run.StartedAt.Local().Format("2006-01-02 15:04:05"), colorize),
	}
	counts := fmt.Sprintf("%d succeeded, %d skipped, %d failed", run.Counts.Succeeded, run.Counts.Skipped, run.Counts.Failed)
	kind := statusOK
	if run.Counts.Failed > 0 {
		kind = statusWarn
	}
	lines = append(lines, renderStatusLine("Results", kind, counts, colorize))
	return lines
}
