package nn

import (
	"github.com/born-ml/warmstart/internal/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// The name is local to the owning layer ("weight", "bias"); containers build
// the dotted state dict key from the path of child names.
type Parameter struct {
	name   string            // Parameter name (e.g., "weight", "bias")
	tensor *tensor.RawTensor // The parameter tensor
}

// NewParameter creates a new trainable parameter around an initialized tensor.
func NewParameter(name string, t *tensor.RawTensor) *Parameter {
	return &Parameter{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.RawTensor {
	return p.tensor
}
