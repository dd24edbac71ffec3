// Package dice computes Sørensen-Dice overlap between a ground-truth mask and
// a prediction.
package dice

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultSmooth keeps the coefficient defined when both inputs are empty.
const DefaultSmooth = 0.01

// Dice rounds prediction to the nearest integer and returns
// (2*sum(T*P)+smooth) / (sum(T)+sum(P)+smooth).
func Dice(target, prediction []float64, smooth float64) (float64, error) {
	if len(target) != len(prediction) {
		return 0, fmt.Errorf("dice: length mismatch (%d target, %d prediction)", len(target), len(prediction))
	}
	rounded := make([]float64, len(prediction))
	for i, value := range prediction {
		rounded[i] = math.RoundToEven(value)
	}
	return coefficient(target, rounded, smooth), nil
}

// SoftDice is Dice without rounding the prediction.
func SoftDice(target, prediction []float64, smooth float64) (float64, error) {
	if len(target) != len(prediction) {
		return 0, fmt.Errorf("soft dice: length mismatch (%d target, %d prediction)", len(target), len(prediction))
	}
	return coefficient(target, prediction, smooth), nil
}

func coefficient(target, prediction []float64, smooth float64) float64 {
	numerator := 2*floats.Dot(target, prediction) + smooth
	denominator := floats.Sum(target) + floats.Sum(prediction) + smooth
	return numerator / denominator
}
