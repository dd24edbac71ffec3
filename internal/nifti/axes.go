package nifti

import (
	"fmt"
)

// MinAxis returns the index of the smallest extent among the first three
// dimensions. Ties resolve to the lowest index.
func MinAxis(shape []int) (int, error) {
	if len(shape) < 3 {
		return 0, fmt.Errorf("%w: need 3 dimensions, have %d", ErrUnsupported, len(shape))
	}
	best := 0
	for axis := 1; axis < 3; axis++ {
		if shape[axis] < shape[best] {
			best = axis
		}
	}
	return best, nil
}

// IsCanonical reports whether axis 2 already has the minimum extent.
func IsCanonical(shape []int) (bool, error) {
	axis, err := MinAxis(shape)
	if err != nil {
		return false, err
	}
	return shape[axis] == shape[2], nil
}

// SwapAxes returns a new volume with axes a and b exchanged. Voxel (.., i_a,
// .., i_b, ..) moves to (.., i_b, .., i_a, ..). Spacing, sform columns, and
// the dim_info axis codes follow the data; the qform is cleared because a
// single swap flips handedness, which a quaternion cannot express.
func (v *Volume) SwapAxes(a, b int) (*Volume, error) {
	n := v.Header.NDim()
	if a < 0 || b < 0 || a >= n || b >= n {
		return nil, fmt.Errorf("swap axes %d and %d: volume has %d dimensions", a, b, n)
	}
	out := &Volume{
		Header: v.Header,
		Order:  v.Order,
		Extra:  append([]byte(nil), v.Extra...),
	}
	if a == b {
		out.Data = append([]byte(nil), v.Data...)
		return out, nil
	}

	inShape := v.Shape()
	outShape := append([]int(nil), inShape...)
	outShape[a], outShape[b] = outShape[b], outShape[a]

	inStrides := strides(inShape)
	width := v.Header.BytesPerVoxel()
	out.Data = make([]byte, len(v.Data))
	index := make([]int, n)
	for linear := 0; linear < len(v.Data)/width; linear++ {
		src := 0
		for axis := 0; axis < n; axis++ {
			inAxis := axis
			switch axis {
			case a:
				inAxis = b
			case b:
				inAxis = a
			}
			src += index[axis] * inStrides[inAxis]
		}
		copy(out.Data[linear*width:(linear+1)*width], v.Data[src*width:(src+1)*width])
		increment(index, outShape)
	}

	h := &out.Header
	h.Dim[a+1], h.Dim[b+1] = h.Dim[b+1], h.Dim[a+1]
	h.PixDim[a+1], h.PixDim[b+1] = h.PixDim[b+1], h.PixDim[a+1]
	if a < 3 && b < 3 {
		h.SRowX[a], h.SRowX[b] = h.SRowX[b], h.SRowX[a]
		h.SRowY[a], h.SRowY[b] = h.SRowY[b], h.SRowY[a]
		h.SRowZ[a], h.SRowZ[b] = h.SRowZ[b], h.SRowZ[a]
		h.DimInfo = swapDimInfo(h.DimInfo, a+1, b+1)
	}
	h.QFormCode = 0
	return out, nil
}

// strides for column-major (first index fastest) storage.
func strides(shape []int) []int {
	s := make([]int, len(shape))
	step := 1
	for i, extent := range shape {
		s[i] = step
		step *= extent
	}
	return s
}

func increment(index, shape []int) {
	for axis := range index {
		index[axis]++
		if index[axis] < shape[axis] {
			return
		}
		index[axis] = 0
	}
}

// swapDimInfo remaps the freq, phase, and slice axis codes (1-based, two bits
// each) of dim_info.
func swapDimInfo(info byte, a, b int) byte {
	remap := func(code byte) byte {
		switch int(code) {
		case a:
			return byte(b)
		case b:
			return byte(a)
		}
		return code
	}
	freq := remap(info & 0x03)
	phase := remap((info >> 2) & 0x03)
	slice := remap((info >> 4) & 0x03)
	return freq | phase<<2 | slice<<4
}
