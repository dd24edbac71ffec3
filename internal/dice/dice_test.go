package dice

import (
	"math"
	"testing"
)

func TestDiceIdenticalMasks(t *testing.T) {
	target := []float64{0, 1, 1, 0, 1, 0, 0, 1}
	got, err := Dice(target, target, DefaultSmooth)
	if err != nil {
		t.Fatalf("Dice returned error: %v", err)
	}
	if math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected 1, got %f", got)
	}
}

func TestDiceEmptyPrediction(t *testing.T) {
	target := make([]float64, 100)
	for i := range 40 {
		target[i] = 1
	}
	got, err := Dice(target, make([]float64, 100), DefaultSmooth)
	if err != nil {
		t.Fatalf("Dice returned error: %v", err)
	}
	if got > 1e-3 {
		t.Fatalf("expected near zero, got %f", got)
	}
}

func TestDiceRoundsPrediction(t *testing.T) {
	target := []float64{1, 1, 0, 0}
	prediction := []float64{0.9, 0.6, 0.4, 0.1}

	hard, err := Dice(target, prediction, 0)
	if err != nil {
		t.Fatalf("Dice returned error: %v", err)
	}
	if math.Abs(hard-1) > 1e-9 {
		t.Fatalf("expected rounded dice 1, got %f", hard)
	}

	soft, err := SoftDice(target, prediction, 0)
	if err != nil {
		t.Fatalf("SoftDice returned error: %v", err)
	}
	want := 2 * 1.5 / (2 + 2.0)
	if math.Abs(soft-want) > 1e-9 {
		t.Fatalf("expected soft dice %f, got %f", want, soft)
	}
}

func TestDiceEmptyInputsUseSmooth(t *testing.T) {
	got, err := Dice([]float64{0, 0}, []float64{0, 0}, DefaultSmooth)
	if err != nil {
		t.Fatalf("Dice returned error: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected smooth/smooth = 1, got %f", got)
	}
}

func TestDiceLengthMismatch(t *testing.T) {
	if _, err := Dice([]float64{1}, []float64{1, 0}, DefaultSmooth); err == nil {
		t.Fatal("expected length mismatch error")
	}
	if _, err := SoftDice([]float64{1}, nil, DefaultSmooth); err == nil {
		t.Fatal("expected length mismatch error")
	}
}
