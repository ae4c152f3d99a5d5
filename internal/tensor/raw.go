package tensor

import (
	"bytes"
	"fmt"
	"unsafe"
)

// Device represents the compute device a tensor is placed on.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
	CUDA
	Vulkan
	Metal
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case CUDA:
		return "CUDA"
	case Vulkan:
		return "Vulkan"
	case Metal:
		return "Metal"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// ParseDevice is the case-sensitive inverse of Device.String.
func ParseDevice(s string) (Device, error) {
	for d := CPU; d <= WebGPU; d++ {
		if d.String() == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown device %q", s)
}

// RawTensor is the low-level tensor representation: a dense row-major byte
// buffer tagged with shape, data type and device.
type RawTensor struct {
	data   []byte
	shape  Shape
	dtype  DataType
	device Device
}

// NewRaw creates a new RawTensor with the given shape and type.
// Memory is allocated and zeroed.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	return &RawTensor{
		data:   make([]byte, shape.NumElements()*dtype.Size()),
		shape:  shape.Clone(),
		dtype:  dtype,
		device: device,
	}, nil
}

// FromFloat32 creates a Float32 tensor holding a copy of values.
func FromFloat32(shape Shape, values []float32, device Device) (*RawTensor, error) {
	raw, err := NewRaw(shape, Float32, device)
	if err != nil {
		return nil, err
	}
	if len(values) != raw.NumElements() {
		return nil, fmt.Errorf("got %d values for shape %v (%d elements)", len(values), shape, raw.NumElements())
	}
	copy(raw.AsFloat32(), values)
	return raw, nil
}

// Full creates a Float32 tensor with every element set to value.
func Full(shape Shape, value float32, device Device) (*RawTensor, error) {
	raw, err := NewRaw(shape, Float32, device)
	if err != nil {
		return nil, err
	}
	data := raw.AsFloat32()
	for i := range data {
		data[i] = value
	}
	return raw, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	return r.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	if len(r.data) == 0 {
		return []float32{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(fmt.Sprintf("tensor dtype is %s, not float64", r.dtype))
	}
	if len(r.data) == 0 {
		return []float64{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*float64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// Clone returns a deep copy of the tensor.
func (r *RawTensor) Clone() *RawTensor {
	return &RawTensor{
		data:   bytes.Clone(r.data),
		shape:  r.shape.Clone(),
		dtype:  r.dtype,
		device: r.device,
	}
}

// To returns a copy of the tensor placed on device. If the tensor already
// lives there it is returned as is.
func (r *RawTensor) To(device Device) *RawTensor {
	if r.device == device {
		return r
	}
	c := r.Clone()
	c.device = device
	return c
}

// Equal reports whether both tensors have the same shape, dtype and contents.
// The device is not compared.
func (r *RawTensor) Equal(other *RawTensor) bool {
	if other == nil {
		return false
	}
	return r.dtype == other.dtype && r.shape.Equal(other.shape) && bytes.Equal(r.data, other.data)
}

// CopyFrom overwrites the contents of r with the contents of src in place.
// Shapes and dtypes must be identical.
func (r *RawTensor) CopyFrom(src *RawTensor) error {
	if !r.shape.Equal(src.shape) {
		return fmt.Errorf("shape mismatch: expected %v, got %v", r.shape, src.shape)
	}
	if r.dtype != src.dtype {
		return fmt.Errorf("dtype mismatch: expected %s, got %s", r.dtype, src.dtype)
	}
	copy(r.data, src.data)
	return nil
}

// String returns a short description, e.g. "float32(4, 4)@CPU".
func (r *RawTensor) String() string {
	return fmt.Sprintf("%s%s@%s", r.dtype, r.shape, r.device)
}
