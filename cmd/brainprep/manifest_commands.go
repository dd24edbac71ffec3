package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"brainprep/internal/manifest"
	"brainprep/internal/stage"
)

func newManifestCommand(ctx *commandContext) *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect recorded preprocessing runs",
	}

	manifestCmd.AddCommand(newManifestRunsCommand(ctx))
	manifestCmd.AddCommand(newManifestShowCommand(ctx))
	manifestCmd.AddCommand(newManifestFailuresCommand(ctx))
	manifestCmd.AddCommand(newManifestClearCommand(ctx))

	return manifestCmd
}

func newManifestRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManifest(func(store *manifest.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					if runs == nil {
						runs = []*manifest.Run{}
					}
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						string(run.Status),
						run.StartedAt.Local().Format("2006-01-02 15:04:05"),
						formatRunDuration(run),
						joinStageLabels(run.Stages),
						strconv.Itoa(run.Patients),
						strconv.Itoa(run.Counts.Succeeded),
						strconv.Itoa(run.Counts.Skipped),
						strconv.Itoa(run.Counts.Failed),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Status", "Started", "Duration", "Stages", "Patients", "Succeeded", "Skipped", "Failed"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newManifestShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show [run]",
		Short: "Show every entry of a run (latest when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManifest(func(store *manifest.Store) error {
				run, err := lookupRun(cmd, store, args)
				if err != nil {
					return err
				}
				entries, err := store.RunEntries(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if jsonOutput {
					if entries == nil {
						entries = []manifest.Entry{}
					}
					return writeJSON(cmd, struct {
						Run     *manifest.Run    `json:"run"`
						Entries []manifest.Entry `json:"entries"`
					}{run, entries})
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Run "+run.ID, colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Status", runStatusKind(run.Status), string(run.Status), colorize))
				if run.ErrorMessage != "" {
					fmt.Fprintln(out, renderStatusLine("Error", statusError, run.ErrorMessage, colorize))
				}
				fmt.Fprintln(out)

				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						entry.Patient,
						entry.Stage.Label(),
						entry.Status.Label(),
						truncate(entry.Input, 60),
						truncate(entry.Reason, 60),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Patient", "Stage", "Status", "Input", "Reason"}, rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newManifestFailuresCommand(ctx *commandContext) *cobra.Command {
	var runFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "failures",
		Short: "List failed items across runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManifest(func(store *manifest.Store) error {
				runID := ""
				if strings.TrimSpace(runFlag) != "" {
					run, err := lookupRun(cmd, store, []string{runFlag})
					if err != nil {
						return err
					}
					runID = run.ID
				}
				failures, err := store.Failures(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if jsonOutput {
					if failures == nil {
						failures = []manifest.Entry{}
					}
					return writeJSON(cmd, failures)
				}
				out := cmd.OutOrStdout()
				if len(failures) == 0 {
					fmt.Fprintln(out, "No failures recorded")
					return nil
				}
				results := make([]stage.Result, 0, len(failures))
				for _, entry := range failures {
					results = append(results, entry.Result())
				}
				fmt.Fprintln(out, renderTable([]string{"Patient", "Stage", "Input", "Kind", "Reason"}, resultRows(results), nil))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&runFlag, "run", "", "Restrict to one run (ID or prefix)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newManifestClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every recorded run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManifest(func(store *manifest.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d run(s)\n", removed)
				return nil
			})
		},
	}
}

func lookupRun(cmd *cobra.Command, store *manifest.Store, args []string) (*manifest.Run, error) {
	var (
		run *manifest.Run
		err error
	)
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		run, err = store.LatestRun(cmd.Context())
	} else {
		run, err = store.GetRun(cmd.Context(), strings.TrimSpace(args[0]))
	}
	if err != nil {
		return nil, err
	}
	if run == nil {
		if len(args) == 0 {
			return nil, fmt.Errorf("no runs recorded")
		}
		return nil, fmt.Errorf("run %s not found", args[0])
	}
	return run, nil
}

func joinStageLabels(stages []stage.Name) string {
	labels := make([]string, 0, len(stages))
	for _, name := range stages {
		labels = append(labels, string(name))
	}
	return strings.Join(labels, ",")
}

func formatRunDuration(run *manifest.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
}

func runStatusKind(status manifest.RunStatus) statusKind {
	switch status {
	case manifest.RunCompleted:
		return statusOK
	case manifest.RunCanceled:
		return statusWarn
	case manifest.RunFailed:
		return statusError
	default:
		return statusInfo
	}
}
