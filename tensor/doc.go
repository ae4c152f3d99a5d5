// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the tensor types used by parameter mappings.
//
// A RawTensor is a dense row-major buffer tagged with a Shape, a DataType and
// the Device it belongs to. Parameter mappings (state dicts) map dotted keys
// to RawTensors.
//
// Example:
//
//	w, _ := tensor.Full(tensor.Shape{32, 1, 3, 3, 3}, 0, tensor.CPU)
//	fmt.Println(w) // float32(32, 1, 3, 3, 3)@CPU
//	half, _ := w.Convert(tensor.Float16)
package tensor
