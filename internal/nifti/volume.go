package nifti

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"brainprep/internal/fileutil"
)

var (
	ErrNotNIfTI    = errors.New("not a NIfTI-1 volume")
	ErrUnsupported = errors.New("unsupported NIfTI-1 variant")
	ErrTruncated   = errors.New("truncated NIfTI-1 volume")
)

// Volume is a decoded single-file NIfTI-1 image.
type Volume struct {
	Header Header
	Order  binary.ByteOrder
	// Extra holds the bytes between the header and vox_offset (extension
	// flag and extensions), preserved verbatim on write.
	Extra []byte
	Data  []byte
}

// Shape returns the extents of the used dimensions.
func (v *Volume) Shape() []int {
	return v.Header.Shape()
}

// Read loads a volume from path, decompressing when the file is gzipped.
func Read(path string) (*Volume, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	vol, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return vol, nil
}

// ReadHeader loads only the header of the volume at path.
func ReadHeader(path string) (Header, error) {
	file, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer file.Close()
	r, err := maybeGunzip(bufio.NewReader(file))
	if err != nil {
		return Header{}, fmt.Errorf("read %s: %w", path, err)
	}
	raw := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return Header{}, fmt.Errorf("read %s: %w: %v", path, ErrTruncated, err)
	}
	h, _, err := decodeHeader(raw)
	if err != nil {
		return Header{}, fmt.Errorf("read %s: %w", path, err)
	}
	return h, nil
}

// Decode parses a volume from r.
func Decode(r io.Reader) (*Volume, error) {
	src, err := maybeGunzip(bufio.NewReader(r))
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read volume: %w", err)
	}
	h, order, err := decodeHeader(raw)
	if err != nil {
		return nil, err
	}

	offset := int(h.VoxOffset)
	if offset < MinVoxOffset {
		offset = MinVoxOffset
	}
	size := h.NumVoxels() * h.BytesPerVoxel()
	if len(raw) < offset+size {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrTruncated, len(raw), offset+size)
	}
	extra := make([]byte, offset-HeaderSize)
	copy(extra, raw[HeaderSize:min(offset, len(raw))])
	data := make([]byte, size)
	copy(data, raw[offset:offset+size])
	return &Volume{Header: h, Order: order, Extra: extra, Data: data}, nil
}

func maybeGunzip(r *bufio.Reader) (io.Reader, error) {
	magic, err := r.Peek(2)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	if magic[0] != 0x1f || magic[1] != 0x8b {
		return r, nil
	}
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	return gz, nil
}

// Write stores the volume at path atomically, gzip-compressing when path ends
// in ".gz".
func Write(path string, v *Volume) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		if !strings.HasSuffix(path, ".gz") {
			return v.Encode(w)
		}
		gz := gzip.NewWriter(w)
		if err := v.Encode(gz); err != nil {
			_ = gz.Close()
			return err
		}
		return gz.Close()
	})
}

// Encode writes the uncompressed single-file representation to w.
func (v *Volume) Encode(w io.Writer) error {
	order := v.Order
	if order == nil {
		order = binary.LittleEndian
	}
	h := v.Header
	extra := v.Extra
	if len(extra) < MinVoxOffset-HeaderSize {
		extra = make([]byte, MinVoxOffset-HeaderSize)
	}
	h.SizeOfHdr = HeaderSize
	h.Magic = singleFileMagic
	h.VoxOffset = float32(HeaderSize + len(extra))
	if want := h.NumVoxels() * h.BytesPerVoxel(); want != len(v.Data) {
		return fmt.Errorf("encode: data has %d bytes, header describes %d", len(v.Data), want)
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, order, &h); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	buf.Write(extra)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(v.Data)
	return err
}

// Float64s converts the voxel data to float64, applying scl_slope and
// scl_inter when a non-zero slope is set.
func (v *Volume) Float64s() ([]float64, error) {
	width := v.Header.BytesPerVoxel()
	n := len(v.Data) / width
	out := make([]float64, n)
	order := v.Order
	if order == nil {
		order = binary.LittleEndian
	}
	for i := 0; i < n; i++ {
		b := v.Data[i*width : (i+1)*width]
		var value float64
		switch v.Header.DataType {
		case DTUint8:
			value = float64(b[0])
		case DTInt8:
			value = float64(int8(b[0]))
		case DTInt16:
			value = float64(int16(order.Uint16(b)))
		case DTUint16:
			value = float64(order.Uint16(b))
		case DTInt32:
			value = float64(int32(order.Uint32(b)))
		case DTUint32:
			value = float64(order.Uint32(b))
		case DTFloat32:
			value = float64(math.Float32frombits(order.Uint32(b)))
		case DTInt64:
			value = float64(int64(order.Uint64(b)))
		case DTUint64:
			value = float64(order.Uint64(b))
		case DTFloat64:
			value = math.Float64frombits(order.Uint64(b))
		default:
			return nil, fmt.Errorf("%w: datatype %d", ErrUnsupported, v.Header.DataType)
		}
		out[i] = value
	}
	if slope := float64(v.Header.SclSlope); slope != 0 && !(slope == 1 && v.Header.SclInter == 0) {
		inter := float64(v.Header.SclInter)
		for i := range out {
			out[i] = out[i]*slope + inter
		}
	}
	return out, nil
}

// NewFloat32 builds a little-endian float32 volume with unit spacing.
func NewFloat32(shape []int, values []float32) (*Volume, error) {
	if len(shape) < 1 || len(shape) > 7 {
		return nil, fmt.Errorf("%w: %d dimensions", ErrUnsupported, len(shape))
	}
	var h Header
	h.Dim[0] = int16(len(shape))
	total := 1
	for i, extent := range shape {
		if extent < 1 || extent > math.MaxInt16 {
			return nil, fmt.Errorf("%w: extent %d", ErrUnsupported, extent)
		}
		h.Dim[i+1] = int16(extent)
		h.PixDim[i+1] = 1
		total *= extent
	}
	if len(values) != total {
		return nil, fmt.Errorf("values: have %d, shape needs %d", len(values), total)
	}
	for i := len(shape) + 1; i < len(h.Dim); i++ {
		h.Dim[i] = 1
	}
	h.PixDim[0] = 1
	h.DataType = DTFloat32
	h.BitPix = 32
	h.SizeOfHdr = HeaderSize
	h.VoxOffset = MinVoxOffset
	h.Magic = singleFileMagic

	data := make([]byte, 4*total)
	for i, value := range values {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(value))
	}
	return &Volume{
		Header: h,
		Order:  binary.LittleEndian,
		Extra:  make([]byte, MinVoxOffset-HeaderSize),
		Data:   data,
	}, nil
}
