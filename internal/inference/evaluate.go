package inference

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"gonum.org/v1/gonum/stat"

	"brainprep/internal/dice"
	"brainprep/internal/logging"
	"brainprep/internal/nifti"
	"brainprep/internal/services"
)

const stageName = "evaluate"

// Options controls which slices are evaluated and where panels are written.
type Options struct {
	OutputDir string
	// CropDim is the center crop edge; -1 disables cropping.
	CropDim int
	Slices  []int
	Smooth  float64
}

// Inputs names the three volumes to compare.
type Inputs struct {
	Image      string
	Mask       string
	Prediction string
}

// SliceScore is the outcome for one slice.
type SliceScore struct {
	Index    int     `json:"index"`
	Dice     float64 `json:"dice"`
	SoftDice float64 `json:"soft_dice"`
	Output   string  `json:"output"`
}

// Result collects the scored slices and the indices that were skipped.
type Result struct {
	Scores     []SliceScore `json:"scores"`
	OutOfRange []int        `json:"out_of_range,omitempty"`
}

// MeanDice averages the hard Dice over scored slices.
func (r *Result) MeanDice() float64 {
	if r == nil || len(r.Scores) == 0 {
		return 0
	}
	values := make([]float64, len(r.Scores))
	for i, score := range r.Scores {
		values[i] = score.Dice
	}
	return stat.Mean(values, nil)
}

// Evaluator renders prediction panels.
type Evaluator struct {
	logger *slog.Logger
}

// NewEvaluator builds an Evaluator.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{logger: logging.NewComponentLogger(logger, "inference")}
}

// EvaluateFiles loads the three volumes and evaluates them.
func (e *Evaluator) EvaluateFiles(ctx context.Context, in Inputs, opts Options) (*Result, error) {
	volumes := make([]*nifti.Volume, 0, 3)
	for _, path := range []string{in.Image, in.Mask, in.Prediction} {
		vol, err := nifti.Read(path)
		if err != nil {
			marker := services.ErrValidation
			if errors.Is(err, fs.ErrNotExist) {
				marker = services.ErrNotFound
			}
			return nil, services.Wrap(marker, stageName, "read volume", path, err)
		}
		volumes = append(volumes, vol)
	}
	return e.Evaluate(ctx, volumes[0], volumes[1], volumes[2], opts)
}

// Evaluate scores and renders every requested slice along axis 2.
func (e *Evaluator) Evaluate(ctx context.Context, image, mask, prediction *nifti.Volume, opts Options) (*Result, error) {
	planes := make([]*Plane, 0, 3)
	for _, vol := range []*nifti.Volume{image, mask, prediction} {
		plane, err := NewPlane(vol)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, stageName, "decode volume", "", err)
		}
		planes = append(planes, plane)
	}
	for _, plane := range planes[1:] {
		if !slices.Equal(plane.shape, planes[0].shape) {
			return nil, services.Wrap(services.ErrValidation, stageName, "compare shapes", "",
				fmt.Errorf("shape %v does not match image shape %v", plane.shape, planes[0].shape))
		}
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	logger := logging.WithContext(ctx, e.logger)
	result := &Result{}
	for _, index := range opts.Slices {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if index < 0 || index >= planes[0].Depth() {
			logging.WarnWithContext(logger, "slice out of range", "slice_out_of_range",
				logging.Int("slice", index),
				logging.Int("depth", planes[0].Depth()),
				logging.String(logging.FieldImpact, "slice skipped"),
			)
			result.OutOfRange = append(result.OutOfRange, index)
			continue
		}
		score, err := e.evaluateSlice(planes, index, opts)
		if err != nil {
			return result, err
		}
		logger.Info("prediction rendered",
			logging.Int("slice", index),
			logging.Float64("dice", score.Dice),
			logging.Float64("soft_dice", score.SoftDice),
			logging.String(logging.FieldOutput, score.Output),
		)
		result.Scores = append(result.Scores, score)
	}
	return result, nil
}

func (e *Evaluator) evaluateSlice(planes []*Plane, index int, opts Options) (SliceScore, error) {
	cropped := make([]Slice, len(planes))
	for i, plane := range planes {
		s, err := plane.Slice(index)
		if err != nil {
			return SliceScore{}, err
		}
		cropped[i] = s.CenterCrop(opts.CropDim)
	}
	mask, prediction := cropped[1].Values, cropped[2].Values

	hard, err := dice.Dice(mask, prediction, opts.Smooth)
	if err != nil {
		return SliceScore{}, err
	}
	soft, err := dice.SoftDice(mask, prediction, opts.Smooth)
	if err != nil {
		return SliceScore{}, err
	}

	output := filepath.Join(opts.OutputDir, fmt.Sprintf("pred_%d.png", index))
	if err := RenderTriptych(output, cropped[0], cropped[1], cropped[2], hard); err != nil {
		return SliceScore{}, fmt.Errorf("render slice %d: %w", index, err)
	}
	return SliceScore{Index: index, Dice: hard, SoftDice: soft, Output: output}, nil
}
