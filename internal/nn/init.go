package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/warmstart/internal/tensor"
)

// Xavier (Glorot) initialization for weights.
//
// Initializes weights with values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
func Xavier(fanIn, fanOut int, shape tensor.Shape) *tensor.RawTensor {
	return uniform(shape, math.Sqrt(6.0/float64(fanIn+fanOut)))
}

// KaimingUniform initializes convolution weights for ReLU-family activations:
// U(-sqrt(6/fan_in), sqrt(6/fan_in)).
func KaimingUniform(fanIn int, shape tensor.Shape) *tensor.RawTensor {
	return uniform(shape, math.Sqrt(6.0/float64(fanIn)))
}

// Zeros creates a float32 tensor filled with zeros.
func Zeros(shape tensor.Shape) *tensor.RawTensor {
	return full(shape, 0)
}

// Ones creates a float32 tensor filled with ones.
func Ones(shape tensor.Shape) *tensor.RawTensor {
	return full(shape, 1)
}

func uniform(shape tensor.Shape, bound float64) *tensor.RawTensor {
	t, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		panic(err)
	}
	data := t.AsFloat32()
	for i := range data {
		//nolint:gosec // Using math/rand for weight initialization (not security-critical)
		data[i] = float32((rand.Float64()*2.0 - 1.0) * bound)
	}
	return t
}

func full(shape tensor.Shape, value float32) *tensor.RawTensor {
	t, err := tensor.Full(shape, value, tensor.CPU)
	if err != nil {
		panic(err)
	}
	return t
}
