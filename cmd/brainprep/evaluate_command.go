package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"brainprep/internal/inference"
)

func newEvaluateCommand(ctx *commandContext) *cobra.Command {
	var (
		in         inference.Inputs
		slices     []int
		cropDim    int
		outputDir  string
		smooth     float64
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a predicted mask against ground truth and render slice panels",
		Long: `Compare a predicted tumor mask with the ground truth mask slice by slice.

Each requested slice is written as pred_<index>.png with the MRI, the ground
truth and the prediction side by side, titled with the slice Dice score.
Slices beyond the volume depth are reported and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			opts := inference.Options{
				OutputDir: cfg.Evaluation.OutputDir,
				CropDim:   cfg.Evaluation.CropDim,
				Slices:    cfg.Evaluation.Slices,
				Smooth:    cfg.Evaluation.Smooth,
			}
			flags := cmd.Flags()
			if flags.Changed("out") {
				opts.OutputDir = strings.TrimSpace(outputDir)
			}
			if flags.Changed("crop-dim") {
				opts.CropDim = cropDim
			}
			if flags.Changed("slices") {
				opts.Slices = slices
			}
			if flags.Changed("smooth") {
				opts.Smooth = smooth
			}

			result, err := inference.NewEvaluator(logger).EvaluateFiles(cmd.Context(), in, opts)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(result.Scores))
			for _, score := range result.Scores {
				rows = append(rows, []string{
					strconv.Itoa(score.Index),
					fmt.Sprintf("%.4f", score.Dice),
					fmt.Sprintf("%.4f", score.SoftDice),
					score.Output,
				})
			}
			fmt.Fprintln(out, renderTableWithFooter(
				[]string{"Slice", "Dice", "Soft Dice", "Output"},
				rows,
				[]string{"Mean", fmt.Sprintf("%.4f", result.MeanDice()), "", ""},
				[]columnAlignment{alignRight, alignRight, alignRight, alignLeft},
			))
			if len(result.OutOfRange) > 0 {
				skipped := make([]string, 0, len(result.OutOfRange))
				for _, index := range result.OutOfRange {
					skipped = append(skipped, strconv.Itoa(index))
				}
				fmt.Fprintf(out, "Skipped out-of-range slices: %s\n", strings.Join(skipped, ", "))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&in.Image, "image", "", "MRI volume (NIfTI)")
	flags.StringVar(&in.Mask, "mask", "", "Ground truth mask (NIfTI)")
	flags.StringVar(&in.Prediction, "prediction", "", "Predicted mask (NIfTI)")
	flags.IntSliceVar(&slices, "slices", nil, "Slice indices to render (default from config)")
	flags.IntVar(&cropDim, "crop-dim", -1, "Center crop edge in pixels; -1 disables cropping")
	flags.StringVarP(&outputDir, "out", "o", "", "Directory for rendered panels (default from config)")
	flags.Float64Var(&smooth, "smooth", 0, "Dice smoothing term (default from config)")
	flags.BoolVar(&jsonOutput, "json", false, "Output scores as JSON")
	for _, name := range []string{"image", "mask", "prediction"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
