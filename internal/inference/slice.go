package inference

import (
	"fmt"

	"brainprep/internal/nifti"
)

// Slice is one 2D plane, stored row-major with rows along axis 0.
type Slice struct {
	Rows   int
	Cols   int
	Values []float64
}

// At returns the value at row r, column c.
func (s Slice) At(r, c int) float64 {
	return s.Values[r*s.Cols+c]
}

// Plane holds a volume converted to float64 for slicing.
type Plane struct {
	shape  []int
	values []float64
}

// NewPlane decodes vol for slicing along axis 2. Dimensions past the third
// contribute only their first entry.
func NewPlane(vol *nifti.Volume) (*Plane, error) {
	shape := vol.Shape()
	if len(shape) < 3 {
		return nil, fmt.Errorf("volume has %d dimensions, need 3", len(shape))
	}
	values, err := vol.Float64s()
	if err != nil {
		return nil, err
	}
	return &Plane{shape: shape[:3], values: values}, nil
}

// Depth is the number of slices along axis 2.
func (p *Plane) Depth() int {
	return p.shape[2]
}

// InPlane returns the extents of axes 0 and 1.
func (p *Plane) InPlane() (int, int) {
	return p.shape[0], p.shape[1]
}

// Slice extracts plane index along axis 2.
func (p *Plane) Slice(index int) (Slice, error) {
	nx, ny := p.shape[0], p.shape[1]
	if index < 0 || index >= p.shape[2] {
		return Slice{}, fmt.Errorf("slice %d out of range [0, %d)", index, p.shape[2])
	}
	out := Slice{Rows: nx, Cols: ny, Values: make([]float64, nx*ny)}
	base := nx * ny * index
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			out.Values[i*ny+j] = p.values[base+i+nx*j]
		}
	}
	return out, nil
}

// CenterCrop returns the centered crop x crop window. The slice is returned
// unchanged when crop is -1 or not smaller than both extents.
func (s Slice) CenterCrop(crop int) Slice {
	if crop == -1 || crop <= 0 || crop >= s.Rows || crop >= s.Cols {
		return s
	}
	startRow := (s.Rows - crop) / 2
	startCol := (s.Cols - crop) / 2
	out := Slice{Rows: crop, Cols: crop, Values: make([]float64, 0, crop*crop)}
	for r := startRow; r < startRow+crop; r++ {
		offset := r * s.Cols
		out.Values = append(out.Values, s.Values[offset+startCol:offset+startCol+crop]...)
	}
	return out
}
