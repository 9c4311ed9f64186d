package checkpoint

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// DType is an on-disk element type as named by the safetensors format.
type DType string

// Supported dtypes.
const (
	F16  DType = "F16"
	BF16 DType = "BF16"
	F32  DType = "F32"
	F64  DType = "F64"
	I32  DType = "I32"
	I64  DType = "I64"
	U8   DType = "U8"
)

// Size returns the byte width of one element, or 0 for an unknown dtype.
func (d DType) Size() int {
	switch d {
	case U8:
		return 1
	case F16, BF16:
		return 2
	case F32, I32:
		return 4
	case F64, I64:
		return 8
	default:
		return 0
	}
}

// decodeFloat32 widens little-endian bytes of dtype d into float32 values.
func decodeFloat32(d DType, b []byte) ([]float32, error) {
	size := d.Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDType, d)
	}
	if len(b)%size != 0 {
		return nil, fmt.Errorf("%s buffer of %d bytes is not a multiple of %d", d, len(b), size)
	}

	n := len(b) / size
	switch d {
	case F32:
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		}
		return out, nil
	case F16:
		out := make([]float32, n)
		for i := range out {
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(b[i*2:])).Float32()
		}
		return out, nil
	case BF16:
		return bfloat16.DecodeFloat32(b), nil
	case F64:
		out := make([]float32, n)
		for i := range out {
			out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:])))
		}
		return out, nil
	case I32:
		out := make([]float32, n)
		for i := range out {
			out[i] = float32(int32(binary.LittleEndian.Uint32(b[i*4:]))) //nolint:gosec // G115: reinterpret bits
		}
		return out, nil
	case I64:
		out := make([]float32, n)
		for i := range out {
			out[i] = float32(int64(binary.LittleEndian.Uint64(b[i*8:]))) //nolint:gosec // G115: reinterpret bits
		}
		return out, nil
	case U8:
		out := make([]float32, n)
		for i, v := range b {
			out[i] = float32(v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedDType, d)
}

// encodeFloat32 serializes float32 values as little-endian F32 bytes.
func encodeFloat32(data []float32) []byte {
	b := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}
