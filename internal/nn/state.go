package nn

import (
	"github.com/born-ml/warmstart/internal/tensor"
)

// StateModule is a module defined only by its state dict. It stands in for a
// network whose architecture is not available in Go, e.g. when the target
// parameters come from a checkpoint file.
type StateModule struct {
	leaf
}

// NewStateModule creates a module owning deep copies of the given tensors.
// Parameter names are the full dotted keys, in lexical order.
func NewStateModule(stateDict map[string]*tensor.RawTensor) *StateModule {
	m := &StateModule{}
	for _, key := range SortedKeys(stateDict) {
		m.params = append(m.params, NewParameter(key, stateDict[key].Clone()))
	}
	return m
}
