package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"brainprep/internal/cohort"
	"brainprep/internal/manifest"
	"brainprep/internal/notifications"
	"brainprep/internal/preflight"
	"brainprep/internal/stage"
	"brainprep/internal/workflow"
)

type preprocessOptions struct {
	stages     []string
	cohortFile string
	jsonOutput bool
}

func newPreprocessCommand(ctx *commandContext) *cobra.Command {
	var opts preprocessOptions

	cmd := &cobra.Command{
		Use:   "preprocess [patients...]",
		Short: "Run the preprocessing stages over the cohort",
		Long: `Run DICOM conversion, skull stripping, axis correction and PNG export.

With no patient arguments every patient in the cohort is processed. The cohort
comes from --cohort, then paths.cohort_file, then the patient directories under
the DICOM root. Existing outputs are skipped, so reruns resume where a previous
run stopped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			stages, err := stage.ParseNames(opts.stages)
			if err != nil {
				return err
			}
			return runPreprocess(cmd, ctx, args, stages, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.stages, "stage", "s", nil, "Stages to run (convert, skullstrip, axes, png); repeatable")
	cmd.Flags().StringVar(&opts.cohortFile, "cohort", "", "Cohort file listing eligible patient IDs")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the run report as JSON")
	return cmd
}

func newStageCommands(ctx *commandContext) []*cobra.Command {
	commands := make([]*cobra.Command, 0, len(stage.Names()))
	for _, name := range stage.Names() {
		var opts preprocessOptions
		cmd := &cobra.Command{
			Use:   string(name) + " [patients...]",
			Short: fmt.Sprintf("Run only the %s stage", strings.ToLower(name.Label())),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPreprocess(cmd, ctx, args, []stage.Name{name}, opts)
			},
		}
		cmd.Flags().StringVar(&opts.cohortFile, "cohort", "", "Cohort file listing eligible patient IDs")
		cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the run report as JSON")
		commands = append(commands, cmd)
	}
	return commands
}

func runPreprocess(cmd *cobra.Command, ctx *commandContext, patients []string, stages []stage.Name, opts preprocessOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	if failed := preflight.Failed(preflight.RunAll(cfg)); len(failed) > 0 {
		problems := make([]string, 0, len(failed))
		for _, result := range failed {
			problems = append(problems, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
		return fmt.Errorf("preflight failed: %s", strings.Join(problems, "; "))
	}

	req := workflow.Request{Patients: patients, Stages: stages}
	if file := strings.TrimSpace(opts.cohortFile); file != "" {
		req.Cohort, err = cohort.Load(file)
		if err != nil {
			return err
		}
	}

	return ctx.withManifest(func(store *manifest.Store) error {
		manager := workflow.NewManager(cfg, store, logger, workflow.DefaultHandlers(cfg, ctx.executor, logger)...)
		manager.SetNotifier(notifications.NewService(cfg))
		report, runErr := manager.Run(cmd.Context(), req)
		if report != nil {
			var renderErr error
			if opts.jsonOutput {
				renderErr = writeJSON(cmd, report)
			} else {
				renderErr = printReport(cmd.OutOrStdout(), report, shouldColorize(cmd.OutOrStdout()))
			}
			if renderErr != nil && runErr == nil {
				runErr = renderErr
			}
		}
		if runErr != nil {
			return runErr
		}
		if failed := report.Counts().Failed; failed > 0 {
			return fmt.Errorf("%d item(s) failed; see `brainprep manifest failures`", failed)
		}
		return nil
	})
}
