package nifti_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"brainprep/internal/nifti"
)

func rampVolume(t *testing.T, shape []int) *nifti.Volume {
	t.Helper()
	total := 1
	for _, extent := range shape {
		total *= extent
	}
	values := make([]float32, total)
	for i := range values {
		values[i] = float32(i)
	}
	vol, err := nifti.NewFloat32(shape, values)
	if err != nil {
		t.Fatalf("NewFloat32 returned error: %v", err)
	}
	return vol
}

func TestWriteReadRoundTripGzip(t *testing.T) {
	vol := rampVolume(t, []int{4, 3, 2})
	vol.Header.PixDim[1] = 0.5
	path := filepath.Join(t.TempDir(), "vol.nii.gz")
	if err := nifti.Write(path, vol); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if raw[0] != 0x1f || raw[1] != 0x8b {
		t.Fatalf("expected gzip magic, got %x", raw[:2])
	}

	got, err := nifti.Read(path)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if shape := got.Shape(); len(shape) != 3 || shape[0] != 4 || shape[1] != 3 || shape[2] != 2 {
		t.Fatalf("unexpected shape %v", shape)
	}
	if got.Header.PixDim[1] != 0.5 {
		t.Fatalf("expected pixdim preserved, got %v", got.Header.PixDim)
	}
	if !bytes.Equal(got.Data, vol.Data) {
		t.Fatal("voxel data changed across round trip")
	}
	header, err := nifti.ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader returned error: %v", err)
	}
	if header.NDim() != 3 {
		t.Fatalf("unexpected ndim %d", header.NDim())
	}
}

func TestReadUncompressedBigEndian(t *testing.T) {
	vol := rampVolume(t, []int{2, 2, 2})
	values, err := vol.Float64s()
	if err != nil {
		t.Fatalf("Float64s returned error: %v", err)
	}
	vol.Order = binary.BigEndian
	vol.Data = make([]byte, len(vol.Data))
	for i, value := range values {
		binary.BigEndian.PutUint32(vol.Data[4*i:], math.Float32bits(float32(value)))
	}
	path := filepath.Join(t.TempDir(), "vol.nii")
	if err := nifti.Write(path, vol); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	got, err := nifti.Read(path)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if got.Order != binary.BigEndian {
		t.Fatalf("expected big-endian detection")
	}
	gotValues, err := got.Float64s()
	if err != nil {
		t.Fatalf("Float64s returned error: %v", err)
	}
	if gotValues[7] != 7 {
		t.Fatalf("unexpected last voxel %v", gotValues[7])
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.nii")
	if err := os.WriteFile(path, bytes.Repeat([]byte{7}, 400), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := nifti.Read(path); !errors.Is(err, nifti.ErrNotNIfTI) {
		t.Fatalf("expected ErrNotNIfTI, got %v", err)
	}
}

func TestReadRejectsTruncatedData(t *testing.T) {
	vol := rampVolume(t, []int{4, 4, 4})
	var buf bytes.Buffer
	if err := vol.Encode(&buf); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "short.nii")
	if err := os.WriteFile(path, buf.Bytes()[:buf.Len()-10], 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := nifti.Read(path); !errors.Is(err, nifti.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestFloat64sAppliesScaling(t *testing.T) {
	vol := rampVolume(t, []int{2, 1, 1})
	vol.Header.SclSlope = 2
	vol.Header.SclInter = 1
	values, err := vol.Float64s()
	if err != nil {
		t.Fatalf("Float64s returned error: %v", err)
	}
	if values[0] != 1 || values[1] != 3 {
		t.Fatalf("unexpected scaled values %v", values)
	}
}

func TestMinAxis(t *testing.T) {
	cases := []struct {
		shape []int
		want  int
	}{
		{[]int{240, 240, 155}, 2},
		{[]int{155, 240, 240}, 0},
		{[]int{240, 155, 240}, 1},
		{[]int{100, 100, 200}, 0},
		{[]int{100, 200, 100}, 0},
	}
	for _, tc := range cases {
		got, err := nifti.MinAxis(tc.shape)
		if err != nil {
			t.Fatalf("MinAxis(%v) returned error: %v", tc.shape, err)
		}
		if got != tc.want {
			t.Fatalf("MinAxis(%v) = %d, want %d", tc.shape, got, tc.want)
		}
	}
	if _, err := nifti.MinAxis([]int{10, 10}); err == nil {
		t.Fatal("expected error for 2D shape")
	}
}

func TestIsCanonicalWhenAxisTwoTies(t *testing.T) {
	ok, err := nifti.IsCanonical([]int{100, 200, 100})
	if err != nil {
		t.Fatalf("IsCanonical returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected tie with axis 2 to count as canonical")
	}
}

func TestSwapAxesMovesVoxels(t *testing.T) {
	shape := []int{3, 4, 2}
	vol := rampVolume(t, shape)
	vol.Header.PixDim[1] = 0.9
	vol.Header.PixDim[3] = 5
	vol.Header.SRowX = [4]float32{1, 2, 3, 10}
	vol.Header.QFormCode = 1

	swapped, err := vol.SwapAxes(0, 2)
	if err != nil {
		t.Fatalf("SwapAxes returned error: %v", err)
	}
	got := swapped.Shape()
	if got[0] != 2 || got[1] != 4 || got[2] != 3 {
		t.Fatalf("unexpected swapped shape %v", got)
	}
	if swapped.Header.PixDim[1] != 5 || swapped.Header.PixDim[3] != 0.9 {
		t.Fatalf("pixdim not swapped: %v", swapped.Header.PixDim)
	}
	if swapped.Header.SRowX != [4]float32{3, 2, 1, 10} {
		t.Fatalf("sform columns not swapped: %v", swapped.Header.SRowX)
	}
	if swapped.Header.QFormCode != 0 {
		t.Fatalf("expected qform cleared")
	}

	in, _ := vol.Float64s()
	out, _ := swapped.Float64s()
	for i := 0; i < shape[0]; i++ {
		for j := 0; j < shape[1]; j++ {
			for k := 0; k < shape[2]; k++ {
				src := i + shape[0]*(j+shape[1]*k)
				dst := k + got[0]*(j+got[1]*i)
				if in[src] != out[dst] {
					t.Fatalf("voxel (%d,%d,%d) = %v moved to %v", i, j, k, in[src], out[dst])
				}
			}
		}
	}
	if vol.Shape()[0] != 3 {
		t.Fatal("SwapAxes modified its receiver")
	}
}

func TestSwapAxesRejectsOutOfRange(t *testing.T) {
	vol := rampVolume(t, []int{2, 2, 2})
	if _, err := vol.SwapAxes(0, 3); err == nil {
		t.Fatal("expected error for axis beyond ndim")
	}
}
