package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"brainprep/internal/logging"
	"brainprep/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		filter logs.Filter
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the JSON log, optionally filtered by patient, stage or run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			out := cmd.OutOrStdout()

			result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: -1, Limit: lines})
			if err != nil {
				return err
			}
			for _, line := range filter.Apply(result.Lines) {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			offset := result.Offset
			for {
				result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: offset, Follow: true, Wait: 30 * time.Second})
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				for _, line := range filter.Apply(result.Lines) {
					fmt.Fprintln(out, line)
				}
				offset = result.Offset
			}
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to read before filtering")
	flags.BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	flags.StringVar(&filter.PatientID, "patient", "", "Only lines for this patient ID")
	flags.StringVar(&filter.Stage, "stage", "", "Only lines for this stage (convert, skullstrip, axes, png)")
	flags.StringVar(&filter.RunID, "run", "", "Only lines for this run ID or prefix")
	flags.StringVar(&filter.MinLevel, "level", "", "Minimum level (debug, info, warn, error)")
	return cmd
}
