package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"brainprep/internal/services"
	"brainprep/internal/training"
)

func newTrainCommand(ctx *commandContext) *cobra.Command {
	var (
		flagOpts training.Options
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Launch the external U-Net trainer",
		Long: `Launch the configured trainer with the [training] settings.

Flags override the configuration for this invocation. The trainer inherits
threading variables for OMP and KMP. Use --dry-run to print the command
without running it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			opts := training.OptionsFromConfig(cfg.Training)
			applyTrainingFlags(cmd, &opts, flagOpts)
			trainCfg, err := training.NewConfig(opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				command := trainCfg.Command()
				preview := services.Command{
					Binary: command[0],
					Args:   append(command[1:], trainCfg.Args()...),
					Env:    trainCfg.Environment(),
				}
				fmt.Fprintln(out, strings.Join(preview.Env, " ")+" "+preview.String())
				return nil
			}

			if err := training.NewRunner(ctx.executor, logger).Run(cmd.Context(), trainCfg); err != nil {
				return err
			}
			fmt.Fprintf(out, "Model saved to %s\n", trainCfg.ModelFile())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&flagOpts.DataPath, "data-path", "", "Directory holding the training data")
	flags.StringVar(&flagOpts.DataFilename, "data-filename", "", "Training data file name")
	flags.StringVar(&flagOpts.OutputPath, "output-path", "", "Directory for the saved model")
	flags.StringVar(&flagOpts.InferenceFilename, "inference-filename", "", "File name of the saved model")
	flags.IntVar(&flagOpts.BatchSize, "batch-size", 0, "Training batch size")
	flags.IntVar(&flagOpts.Epochs, "epochs", 0, "Number of epochs")
	flags.IntVar(&flagOpts.CropDim, "crop-dim", 0, "Center crop edge; -1 disables cropping")
	flags.IntVar(&flagOpts.IntraOpThreads, "intraop-threads", 0, "Intra-op thread count")
	flags.IntVar(&flagOpts.InterOpThreads, "interop-threads", 0, "Inter-op thread count")
	flags.IntVar(&flagOpts.Seed, "seed", 0, "Random seed")
	flags.BoolVar(&flagOpts.UsePartialConv, "use-pconv", false, "Use partial convolution padding")
	flags.BoolVar(&flagOpts.ChannelsFirst, "channels-first", false, "Use channels-first tensor layout")
	flags.BoolVar(&dryRun, "dry-run", false, "Print the trainer command without running it")
	return cmd
}

// applyTrainingFlags copies every explicitly set flag onto opts.
func applyTrainingFlags(cmd *cobra.Command, opts *training.Options, flagOpts training.Options) {
	flags := cmd.Flags()
	strs := map[string]struct {
		dst *string
		src string
	}{
		"data-path":          {&opts.DataPath, flagOpts.DataPath},
		"data-filename":      {&opts.DataFilename, flagOpts.DataFilename},
		"output-path":        {&opts.OutputPath, flagOpts.OutputPath},
		"inference-filename": {&opts.InferenceFilename, flagOpts.InferenceFilename},
	}
	for name, v := range strs {
		if flags.Changed(name) {
			*v.dst = v.src
		}
	}
	ints := map[string]struct {
		dst *int
		src int
	}{
		"batch-size":      {&opts.BatchSize, flagOpts.BatchSize},
		"epochs":          {&opts.Epochs, flagOpts.Epochs},
		"crop-dim":        {&opts.CropDim, flagOpts.CropDim},
		"intraop-threads": {&opts.IntraOpThreads, flagOpts.IntraOpThreads},
		"interop-threads": {&opts.InterOpThreads, flagOpts.InterOpThreads},
		"seed":            {&opts.Seed, flagOpts.Seed},
	}
	for name, v := range ints {
		if flags.Changed(name) {
			*v.dst = v.src
		}
	}
	if flags.Changed("use-pconv") {
		opts.UsePartialConv = flagOpts.UsePartialConv
	}
	if flags.Changed("channels-first") {
		opts.ChannelsFirst = flagOpts.ChannelsFirst
	}
}
