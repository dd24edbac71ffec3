package nifti

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the fixed NIfTI-1 header length stored in sizeof_hdr.
	HeaderSize = 348
	// MinVoxOffset is the smallest data offset for single-file volumes: the
	// header plus the four-byte extension flag.
	MinVoxOffset = 352
)

// Datatype codes from nifti1.h.
const (
	DTUint8   int16 = 2
	DTInt16   int16 = 4
	DTInt32   int16 = 8
	DTFloat32 int16 = 16
	DTFloat64 int16 = 64
	DTInt8    int16 = 256
	DTUint16  int16 = 512
	DTUint32  int16 = 768
	DTInt64   int16 = 1024
	DTUint64  int16 = 1280
)

var singleFileMagic = [4]byte{'n', '+', '1', 0}

// Header mirrors the on-disk NIfTI-1 header field for field.
type Header struct {
	SizeOfHdr      int32
	DataTypeUnused [10]byte
	DBName         [18]byte
	Extents        int32
	SessionError   int16
	Regular        byte
	DimInfo        byte

	Dim        [8]int16
	IntentP1   float32
	IntentP2   float32
	IntentP3   float32
	IntentCode int16
	DataType   int16
	BitPix     int16
	SliceStart int16
	PixDim     [8]float32
	VoxOffset  float32
	SclSlope   float32
	SclInter   float32
	SliceEnd   int16
	SliceCode  byte
	XYZTUnits  byte
	CalMax     float32
	CalMin     float32
	SliceDur   float32
	TOffset    float32
	GLMax      int32
	GLMin      int32

	Descrip [80]byte
	AuxFile [24]byte

	QFormCode int16
	SFormCode int16
	QuaternB  float32
	QuaternC  float32
	QuaternD  float32
	QOffsetX  float32
	QOffsetY  float32
	QOffsetZ  float32

	SRowX [4]float32
	SRowY [4]float32
	SRowZ [4]float32

	IntentName [16]byte
	Magic      [4]byte
}

// NDim returns the number of dimensions recorded in dim[0].
func (h *Header) NDim() int {
	return int(h.Dim[0])
}

// Shape returns the extents of the used dimensions.
func (h *Header) Shape() []int {
	n := h.NDim()
	shape := make([]int, n)
	for i := 0; i < n; i++ {
		shape[i] = int(h.Dim[i+1])
	}
	return shape
}

// BytesPerVoxel derives the element size from bitpix.
func (h *Header) BytesPerVoxel() int {
	return int(h.BitPix) / 8
}

// NumVoxels is the product of the used extents.
func (h *Header) NumVoxels() int {
	total := 1
	for _, extent := range h.Shape() {
		total *= extent
	}
	return total
}

// decodeHeader reads the header, detecting byte order from sizeof_hdr.
func decodeHeader(raw []byte) (Header, binary.ByteOrder, error) {
	if len(raw) < HeaderSize {
		return Header{}, nil, fmt.Errorf("%w: %d bytes, need %d", ErrTruncated, len(raw), HeaderSize)
	}
	var h Header
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		if err := binary.Read(bytes.NewReader(raw[:HeaderSize]), order, &h); err != nil {
			return Header{}, nil, fmt.Errorf("decode header: %w", err)
		}
		if h.SizeOfHdr == HeaderSize {
			if err := validateHeader(&h); err != nil {
				return Header{}, nil, err
			}
			return h, order, nil
		}
	}
	return Header{}, nil, fmt.Errorf("%w: sizeof_hdr %d", ErrNotNIfTI, h.SizeOfHdr)
}

func validateHeader(h *Header) error {
	if h.Magic != singleFileMagic {
		return fmt.Errorf("%w: magic %q", ErrUnsupported, h.Magic[:3])
	}
	if n := h.NDim(); n < 1 || n > 7 {
		return fmt.Errorf("%w: dim[0]=%d", ErrNotNIfTI, n)
	}
	for i := 1; i <= h.NDim(); i++ {
		if h.Dim[i] < 1 {
			return fmt.Errorf("%w: dim[%d]=%d", ErrNotNIfTI, i, h.Dim[i])
		}
	}
	if h.BitPix <= 0 || h.BitPix%8 != 0 {
		return fmt.Errorf("%w: bitpix %d", ErrUnsupported, h.BitPix)
	}
	if _, ok := datatypeWidth[h.DataType]; !ok {
		return fmt.Errorf("%w: datatype %d", ErrUnsupported, h.DataType)
	}
	if datatypeWidth[h.DataType] != h.BytesPerVoxel() {
		return fmt.Errorf("%w: datatype %d with bitpix %d", ErrNotNIfTI, h.DataType, h.BitPix)
	}
	return nil
}

var datatypeWidth = map[int16]int{
	DTUint8:   1,
	DTInt8:    1,
	DTInt16:   2,
	DTUint16:  2,
	DTInt32:   4,
	DTUint32:  4,
	DTFloat32: 4,
	DTInt64:   8,
	DTUint64:  8,
	DTFloat64: 8,
}
