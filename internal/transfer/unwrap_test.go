package transfer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/warmstart/internal/nn"
	"github.com/born-ml/warmstart/internal/tensor"
)

func TestUnwrap(t *testing.T) {
	inner := nn.NewLinear(2, 2)

	assert.Same(t, inner, Unwrap(inner))
	assert.Same(t, inner, Unwrap(nn.NewCompiled(inner)))
	assert.Same(t, inner, Unwrap(nn.NewDataParallel(inner, tensor.CPU)))
	assert.Same(t, inner, Unwrap(nn.NewDataParallel(nn.NewCompiled(inner), tensor.CPU)))

	// Order is fixed: a data-parallel wrapper inside a compiled one is kept.
	dp := nn.NewDataParallel(inner, tensor.CPU)
	assert.Same(t, dp, Unwrap(nn.NewCompiled(dp)))

	// Sequential.Module(i) is not a wrapper accessor.
	seq := nn.NewSequential(inner)
	assert.Same(t, seq, Unwrap(seq))
}

func TestStripKeyPrefixes(t *testing.T) {
	one := full(tensor.Shape{1}, 1)
	got, err := StripKeyPrefixes(stateDict(
		"module._orig_mod.a.w", one,
		"module.b.w", one,
		"_orig_mod.c.w", one,
		"d.module.w", one,
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.w", "b.w", "c.w", "d.module.w"}, nn.SortedKeys(got))

	_, err = StripKeyPrefixes(stateDict("module.a.w", one, "a.w", one))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), `"a.w"`))
}

func TestIsExcluded(t *testing.T) {
	lenient := DefaultExclusions(Lenient)
	assert.True(t, IsExcluded("decoder.up.w", lenient))
	assert.True(t, IsExcluded("net.decoder.stages.0.w", lenient))
	assert.True(t, IsExcluded("net.seg_layers.0.w", lenient))
	assert.True(t, IsExcluded("projector.fc.w", lenient))
	assert.False(t, IsExcluded("encoder.stages.0.w", lenient))

	strict := DefaultExclusions(Strict)
	assert.False(t, IsExcluded("decoder.up.w", strict))
	assert.False(t, IsExcluded("seg_layers.0.w", strict))
	assert.True(t, IsExcluded("decoder.seg_layers.0.w", strict))
	assert.False(t, IsExcluded("anything", nil))
}
