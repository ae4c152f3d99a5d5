package nn

import (
	"github.com/born-ml/warmstart/internal/tensor"
)

// Conv holds the parameters of an N-dimensional convolution.
//
// The weight has shape [out_channels, in_channels, k0, k1, ...], so a 3x3x3
// volumetric convolution and a 1x1 segmentation head are both Conv layers.
// Weights use Kaiming uniform initialization, biases start at zero.
type Conv struct {
	leaf
	inChannels  int
	outChannels int
	kernel      []int
}

// NewConv creates a convolution with bias and the given kernel sizes.
func NewConv(inChannels, outChannels int, kernel ...int) *Conv {
	if len(kernel) == 0 {
		panic("NewConv: at least one kernel dimension is required")
	}
	fanIn := inChannels
	for _, k := range kernel {
		fanIn *= k
	}
	shape := append(tensor.Shape{outChannels, inChannels}, kernel...)

	c := &Conv{inChannels: inChannels, outChannels: outChannels, kernel: append([]int(nil), kernel...)}
	c.params = []*Parameter{
		NewParameter("weight", KaimingUniform(fanIn, shape)),
		NewParameter("bias", Zeros(tensor.Shape{outChannels})),
	}
	return c
}

// Kernel returns the kernel sizes.
func (c *Conv) Kernel() []int {
	return c.kernel
}

// Norm holds the affine parameters of a normalization layer (instance,
// layer or batch norm): weight initialized to ones, bias to zeros.
type Norm struct {
	leaf
}

// NewNorm creates the affine parameters for numFeatures channels.
func NewNorm(numFeatures int) *Norm {
	n := &Norm{}
	n.params = []*Parameter{
		NewParameter("weight", Ones(tensor.Shape{numFeatures})),
		NewParameter("bias", Zeros(tensor.Shape{numFeatures})),
	}
	return n
}
