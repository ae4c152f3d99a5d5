// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/warmstart/internal/tensor"
)

// Type aliases for public API

// RawTensor is a dense tensor buffer with shape, dtype and device.
type RawTensor = tensor.RawTensor

// Shape represents the dimensions of a tensor.
type Shape = tensor.Shape

// DataType represents the element type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32  DataType = tensor.Float32
	Float64  DataType = tensor.Float64
	Int32    DataType = tensor.Int32
	Int64    DataType = tensor.Int64
	Uint8    DataType = tensor.Uint8
	Bool     DataType = tensor.Bool
	Float16  DataType = tensor.Float16
	BFloat16 DataType = tensor.BFloat16
)

// Device represents the device a tensor is placed on.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	CUDA   Device = tensor.CUDA
	Vulkan Device = tensor.Vulkan
	Metal  Device = tensor.Metal
	WebGPU Device = tensor.WebGPU
)

// NewRaw creates a zero-filled tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// FromFloat32 creates a float32 tensor holding a copy of values.
func FromFloat32(shape Shape, values []float32, device Device) (*RawTensor, error) {
	return tensor.FromFloat32(shape, values, device)
}

// Full creates a float32 tensor filled with value.
func Full(shape Shape, value float32, device Device) (*RawTensor, error) {
	return tensor.Full(shape, value, device)
}

// ParseDataType converts a dtype name such as "float16" to a DataType.
func ParseDataType(s string) (DataType, error) {
	return tensor.ParseDataType(s)
}

// ParseDevice converts a device name such as "CUDA" to a Device.
func ParseDevice(s string) (Device, error) {
	return tensor.ParseDevice(s)
}
