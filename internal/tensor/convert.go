package tensor

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"
)

// Convert returns a copy of r with its elements converted to dtype.
// Only conversions between floating point types are supported; converting
// to the tensor's own dtype returns a clone.
func (r *RawTensor) Convert(dtype DataType) (*RawTensor, error) {
	if r.dtype == dtype {
		return r.Clone(), nil
	}
	if !r.dtype.IsFloat() || !dtype.IsFloat() {
		return nil, fmt.Errorf("cannot convert %s to %s", r.dtype, dtype)
	}

	out, err := NewRaw(r.shape, dtype, r.device)
	if err != nil {
		return nil, err
	}
	n := r.NumElements()
	for i := 0; i < n; i++ {
		putFloat(out.data, dtype, i, getFloat(r.data, r.dtype, i))
	}
	return out, nil
}

// getFloat reads element i of a little-endian buffer of the given float type.
func getFloat(data []byte, dtype DataType, i int) float64 {
	switch dtype {
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	case Float16:
		return float64(float16.Frombits(binary.LittleEndian.Uint16(data[i*2:])).Float32())
	case BFloat16:
		return float64(math.Float32frombits(uint32(binary.LittleEndian.Uint16(data[i*2:])) << 16))
	default:
		panic(fmt.Sprintf("getFloat: %s is not a float type", dtype))
	}
}

// putFloat writes v as element i of a little-endian buffer of the given float type.
func putFloat(data []byte, dtype DataType, i int, v float64) {
	switch dtype {
	case Float32:
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	case Float16:
		binary.LittleEndian.PutUint16(data[i*2:], float16.Fromfloat32(float32(v)).Bits())
	case BFloat16:
		binary.LittleEndian.PutUint16(data[i*2:], bfloat16Bits(float32(v)))
	default:
		panic(fmt.Sprintf("putFloat: %s is not a float type", dtype))
	}
}

// bfloat16Bits truncates a float32 to bfloat16 with round-to-nearest-even.
func bfloat16Bits(f float32) uint16 {
	bits := math.Float32bits(f)
	if math.IsNaN(float64(f)) { // keep NaN quiet
		return uint16(bits>>16) | 0x40
	}
	rounding := uint32(0x7FFF) + (bits>>16)&1
	return uint16((bits + rounding) >> 16)
}
