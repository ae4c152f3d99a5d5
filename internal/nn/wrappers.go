package nn

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/warmstart/internal/parallel"
	"github.com/born-ml/warmstart/internal/tensor"
)

// Key prefixes added by the wrapper modules to every state dict key.
const (
	DataParallelPrefix = "module."
	CompiledPrefix     = "_orig_mod."
)

// prefixed returns inner's state dict with prefix added to every key.
func prefixed(prefix string, inner map[string]*tensor.RawTensor) map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor, len(inner))
	for key, raw := range inner {
		stateDict[prefix+key] = raw
	}
	return stateDict
}

// unprefixed strips prefix from every key; a key without it is an error.
func unprefixed(prefix string, stateDict map[string]*tensor.RawTensor) (map[string]*tensor.RawTensor, error) {
	inner := make(map[string]*tensor.RawTensor, len(stateDict))
	for key, raw := range stateDict {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok {
			return nil, errors.Errorf("unexpected key %q in state dict: expected prefix %q", key, prefix)
		}
		inner[rest] = raw
	}
	return inner, nil
}

// DataParallel wraps a module replicated over several devices. The wrapped
// module holds the authoritative parameters; every replica is a copy kept
// in sync after each LoadStateDict.
//
// Like its counterparts in other frameworks it prefixes state dict keys with
// "module.", which is why weight transfer unwraps it first.
type DataParallel struct {
	module   Module
	devices  []tensor.Device
	replicas []map[string]*tensor.RawTensor
	workers  parallel.Config
}

// NewDataParallel replicates module onto devices.
func NewDataParallel(module Module, devices ...tensor.Device) *DataParallel {
	dp := &DataParallel{module: module, devices: devices, workers: parallel.DefaultConfig()}
	source := module.StateDict()
	dp.replicas = make([]map[string]*tensor.RawTensor, len(devices))
	for i, device := range devices {
		replica := make(map[string]*tensor.RawTensor, len(source))
		for key, raw := range source {
			replica[key] = raw.Clone().To(device)
		}
		dp.replicas[i] = replica
	}
	return dp
}

// Module returns the wrapped module.
func (dp *DataParallel) Module() Module {
	return dp.module
}

// Devices returns the replica devices.
func (dp *DataParallel) Devices() []tensor.Device {
	return dp.devices
}

// Replica returns the parameters held by replica i, keyed like the wrapped module.
func (dp *DataParallel) Replica(i int) map[string]*tensor.RawTensor {
	return dp.replicas[i]
}

// Parameters returns the wrapped module's parameters.
func (dp *DataParallel) Parameters() []*Parameter {
	return dp.module.Parameters()
}

// StateDict returns the wrapped module's state dict under the "module." prefix.
func (dp *DataParallel) StateDict() map[string]*tensor.RawTensor {
	return prefixed(DataParallelPrefix, dp.module.StateDict())
}

// LoadStateDict loads "module."-prefixed keys into the wrapped module and
// broadcasts the result to every replica.
func (dp *DataParallel) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	inner, err := unprefixed(DataParallelPrefix, stateDict)
	if err != nil {
		return err
	}
	if err := dp.module.LoadStateDict(inner); err != nil {
		return err
	}
	dp.Sync()
	return nil
}

// Sync copies the wrapped module's parameters into every replica.
func (dp *DataParallel) Sync() {
	source := dp.module.StateDict()
	keys := SortedKeys(source)
	parallel.For(len(keys)*len(dp.replicas), func(i int) {
		replica := dp.replicas[i/len(keys)]
		key := keys[i%len(keys)]
		copy(replica[key].Data(), source[key].Data())
	}, dp.workers)
}

// Compiled wraps a module prepared for optimized execution. It keeps the
// original module untouched and prefixes state dict keys with "_orig_mod.".
type Compiled struct {
	original Module
}

// NewCompiled wraps module.
func NewCompiled(module Module) *Compiled {
	return &Compiled{original: module}
}

// OriginalModule returns the module that was compiled.
func (c *Compiled) OriginalModule() Module {
	return c.original
}

// Parameters returns the original module's parameters.
func (c *Compiled) Parameters() []*Parameter {
	return c.original.Parameters()
}

// StateDict returns the original module's state dict under the "_orig_mod." prefix.
func (c *Compiled) StateDict() map[string]*tensor.RawTensor {
	return prefixed(CompiledPrefix, c.original.StateDict())
}

// LoadStateDict loads "_orig_mod."-prefixed keys into the original module.
func (c *Compiled) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	inner, err := unprefixed(CompiledPrefix, stateDict)
	if err != nil {
		return err
	}
	return c.original.LoadStateDict(inner)
}
