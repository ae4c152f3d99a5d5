package nn

import (
	"github.com/born-ml/warmstart/internal/tensor"
)

// leaf holds the parameters of a layer without children.
type leaf struct {
	params []*Parameter
}

// Parameters returns the layer's parameters in declaration order.
func (l *leaf) Parameters() []*Parameter {
	return l.params
}

// StateDict returns the layer's parameters keyed by their local names.
func (l *leaf) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor, len(l.params))
	for _, p := range l.params {
		stateDict[p.Name()] = p.Tensor()
	}
	return stateDict
}

// LoadStateDict loads parameters keyed by their local names.
func (l *leaf) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return loadInto(l.StateDict(), stateDict)
}

// Linear implements a fully connected (dense) layer.
//
// Parameters:
//   - weight: [out_features, in_features], Xavier/Glorot uniform
//   - bias:   [out_features], zeros (optional)
type Linear struct {
	leaf
	inFeatures  int
	outFeatures int
}

// NewLinear creates a new Linear layer with bias.
func NewLinear(inFeatures, outFeatures int) *Linear {
	return newLinear(inFeatures, outFeatures, true)
}

// NewLinearNoBias creates a new Linear layer without bias.
func NewLinearNoBias(inFeatures, outFeatures int) *Linear {
	return newLinear(inFeatures, outFeatures, false)
}

func newLinear(inFeatures, outFeatures int, useBias bool) *Linear {
	l := &Linear{inFeatures: inFeatures, outFeatures: outFeatures}
	l.params = append(l.params, NewParameter("weight",
		Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures})))
	if useBias {
		l.params = append(l.params, NewParameter("bias", Zeros(tensor.Shape{outFeatures})))
	}
	return l
}

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int {
	return l.outFeatures
}
