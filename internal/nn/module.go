// Package nn implements the parameter-holding side of neural network modules:
// named parameters, layers, containers and wrapper modules.
//
// Modules here carry no forward computation. They expose their parameters as a
// state dict (dotted key -> tensor) and accept one back, which is everything
// pretrained-weight transfer needs from a network.
//
// Design inspired by PyTorch's nn.Module state_dict/load_state_dict.
package nn

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/born-ml/warmstart/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Every NN module must implement:
//   - Parameters: Return all trainable parameters
//   - StateDict: Export parameters by dotted key
//   - LoadStateDict: Import parameters by dotted key
//
// Modules can be composed to build complex architectures:
//
//	net := nn.NewContainer().
//	    Add("encoder", nn.NewSequential(nn.NewConv(1, 32, 3, 3, 3), nn.NewNorm(32))).
//	    Add("decoder", nn.NewSequential(nn.NewConv(32, 2, 1, 1, 1)))
type Module interface {
	// Parameters returns all trainable parameters of this module,
	// including those of nested modules.
	Parameters() []*Parameter

	// StateDict returns a map of dotted parameter keys to the live
	// parameter tensors. Mutating a returned tensor mutates the module.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict copies the given tensors into the module's parameters.
	//
	// Every parameter key must be present with the exact shape and dtype of
	// the parameter, and no unknown keys are accepted. Nothing is copied
	// when an error is returned.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// SortedKeys returns the keys of a state dict in lexical order.
func SortedKeys(stateDict map[string]*tensor.RawTensor) []string {
	keys := make([]string, 0, len(stateDict))
	for key := range stateDict {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// CloneStateDict deep-copies every tensor of stateDict.
func CloneStateDict(stateDict map[string]*tensor.RawTensor) map[string]*tensor.RawTensor {
	clone := make(map[string]*tensor.RawTensor, len(stateDict))
	for key, raw := range stateDict {
		clone[key] = raw.Clone()
	}
	return clone
}

// loadInto validates stateDict against the live tensors in target and only
// then copies every value. It is the shared LoadStateDict implementation.
func loadInto(target, stateDict map[string]*tensor.RawTensor) error {
	if err := loadCheck(target, stateDict); err != nil {
		return err
	}
	for key, dst := range target {
		if err := dst.CopyFrom(stateDict[key]); err != nil {
			return errors.Wrapf(err, "loading %q", key)
		}
	}
	return nil
}

// loadCheck reports the first key of stateDict that cannot be loaded into target.
func loadCheck(target, stateDict map[string]*tensor.RawTensor) error {
	for _, key := range SortedKeys(target) {
		src, ok := stateDict[key]
		if !ok {
			return errors.Errorf("missing key %q in state dict", key)
		}
		dst := target[key]
		if !dst.Shape().Equal(src.Shape()) {
			return errors.Errorf("shape mismatch for %q: expected %v, got %v", key, dst.Shape(), src.Shape())
		}
		if dst.DType() != src.DType() {
			return errors.Errorf("dtype mismatch for %q: expected %s, got %s", key, dst.DType(), src.DType())
		}
	}
	for _, key := range SortedKeys(stateDict) {
		if _, ok := target[key]; !ok {
			return errors.Errorf("unexpected key %q in state dict", key)
		}
	}
	return nil
}
