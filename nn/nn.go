// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/warmstart/internal/nn"
	"github.com/born-ml/warmstart/internal/tensor"
)

// Module interface defines the common interface for all neural network modules.
type Module = nn.Module

// Parameter represents a named trainable tensor.
type Parameter = nn.Parameter

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter(name string, t *tensor.RawTensor) *Parameter {
	return nn.NewParameter(name, t)
}

// Layers

// Linear represents a fully connected (dense) layer.
type Linear = nn.Linear

// NewLinear creates a new linear layer with Xavier initialization.
//
// Example:
//
//	layer := nn.NewLinear(784, 128)
func NewLinear(inFeatures, outFeatures int) *Linear {
	return nn.NewLinear(inFeatures, outFeatures)
}

// NewLinearNoBias creates a linear layer without bias.
func NewLinearNoBias(inFeatures, outFeatures int) *Linear {
	return nn.NewLinearNoBias(inFeatures, outFeatures)
}

// Conv represents an N-dimensional convolution.
type Conv = nn.Conv

// NewConv creates a convolution with the given kernel sizes.
//
// Example:
//
//	conv := nn.NewConv(1, 32, 3, 3, 3) // 3x3x3 volumetric kernel
func NewConv(inChannels, outChannels int, kernel ...int) *Conv {
	return nn.NewConv(inChannels, outChannels, kernel...)
}

// Norm represents the affine parameters of a normalization layer.
type Norm = nn.Norm

// NewNorm creates normalization parameters for numFeatures channels.
func NewNorm(numFeatures int) *Norm {
	return nn.NewNorm(numFeatures)
}

// Containers

// Container is a module made of named children.
type Container = nn.Container

// NewContainer creates an empty container.
func NewContainer() *Container {
	return nn.NewContainer()
}

// Sequential is a container with children named by position.
type Sequential = nn.Sequential

// NewSequential creates a sequential container.
func NewSequential(modules ...Module) *Sequential {
	return nn.NewSequential(modules...)
}

// StateModule is a module defined only by its state dict.
type StateModule = nn.StateModule

// NewStateModule creates a module owning copies of stateDict.
func NewStateModule(stateDict map[string]*tensor.RawTensor) *StateModule {
	return nn.NewStateModule(stateDict)
}

// Wrappers

// Key prefixes added by the wrappers.
const (
	DataParallelPrefix = nn.DataParallelPrefix
	CompiledPrefix     = nn.CompiledPrefix
)

// DataParallel replicates a module over several devices.
type DataParallel = nn.DataParallel

// NewDataParallel wraps module with one replica per device.
func NewDataParallel(module Module, devices ...tensor.Device) *DataParallel {
	return nn.NewDataParallel(module, devices...)
}

// Compiled wraps a module prepared for optimized execution.
type Compiled = nn.Compiled

// NewCompiled wraps module.
func NewCompiled(module Module) *Compiled {
	return nn.NewCompiled(module)
}

// Initialization

// Xavier returns a float32 tensor with Glorot uniform values.
func Xavier(fanIn, fanOut int, shape tensor.Shape) *tensor.RawTensor {
	return nn.Xavier(fanIn, fanOut, shape)
}

// KaimingUniform returns a float32 tensor with He uniform values.
func KaimingUniform(fanIn int, shape tensor.Shape) *tensor.RawTensor {
	return nn.KaimingUniform(fanIn, shape)
}

// Zeros returns a float32 tensor of zeros.
func Zeros(shape tensor.Shape) *tensor.RawTensor {
	return nn.Zeros(shape)
}

// Ones returns a float32 tensor of ones.
func Ones(shape tensor.Shape) *tensor.RawTensor {
	return nn.Ones(shape)
}

// SortedKeys returns the keys of a state dict in lexical order.
func SortedKeys(stateDict map[string]*tensor.RawTensor) []string {
	return nn.SortedKeys(stateDict)
}
