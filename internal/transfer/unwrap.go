package transfer

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/warmstart/internal/nn"
	"github.com/born-ml/warmstart/internal/tensor"
)

// UnwrapStep removes one kind of wrapper around a network.
type UnwrapStep struct {
	// Name identifies the wrapper in logs.
	Name string

	// KeyPrefix is what the wrapper adds in front of every state dict key.
	KeyPrefix string

	// Unwrap returns the wrapped module and true if m is this kind of wrapper.
	Unwrap func(m nn.Module) (nn.Module, bool)
}

// UnwrapSteps is the order in which wrappers are removed: a data-parallel
// wrapper sits outside a compiled one, so it is removed first.
var UnwrapSteps = []UnwrapStep{
	{
		Name:      "data-parallel",
		KeyPrefix: nn.DataParallelPrefix,
		Unwrap: func(m nn.Module) (nn.Module, bool) {
			if dp, ok := m.(interface{ Module() nn.Module }); ok {
				return dp.Module(), true
			}
			return m, false
		},
	},
	{
		Name:      "compiled",
		KeyPrefix: nn.CompiledPrefix,
		Unwrap: func(m nn.Module) (nn.Module, bool) {
			if c, ok := m.(interface{ OriginalModule() nn.Module }); ok {
				return c.OriginalModule(), true
			}
			return m, false
		},
	},
}

// Unwrap returns the innermost module of network, applying each of
// UnwrapSteps at most once and in order. The network itself is not modified.
func Unwrap(network nn.Module) nn.Module {
	m := network
	for _, step := range UnwrapSteps {
		if inner, ok := step.Unwrap(m); ok {
			m = inner
		}
	}
	return m
}

// StripKeyPrefixes returns a copy of stateDict where the wrapper prefixes of
// UnwrapSteps are removed from every key, in the same order as Unwrap.
// It fails if two keys become the same.
func StripKeyPrefixes(stateDict map[string]*tensor.RawTensor) (map[string]*tensor.RawTensor, error) {
	stripped := make(map[string]*tensor.RawTensor, len(stateDict))
	origin := make(map[string]string, len(stateDict))
	for _, key := range nn.SortedKeys(stateDict) {
		inner := key
		for _, step := range UnwrapSteps {
			inner = strings.TrimPrefix(inner, step.KeyPrefix)
		}
		if other, dup := origin[inner]; dup {
			return nil, errors.Errorf("keys %q and %q both become %q once wrapper prefixes are removed", other, key, inner)
		}
		origin[inner] = key
		stripped[inner] = stateDict[key]
	}
	return stripped, nil
}
