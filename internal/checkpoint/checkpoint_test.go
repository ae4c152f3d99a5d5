package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/warmstart/internal/nn"
	"github.com/born-ml/warmstart/internal/serialization"
	"github.com/born-ml/warmstart/internal/tensor"
)

type fakeOptimizer map[string]*tensor.RawTensor

func (f fakeOptimizer) StateDict() map[string]*tensor.RawTensor { return f }

func testNetwork() *nn.Container {
	return nn.NewContainer().
		Add("encoder", nn.NewSequential(nn.NewConv(1, 2, 3, 3), nn.NewNorm(2))).
		Add("head", nn.NewLinear(2, 3))
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.born")
	net := testNetwork()

	ckpt := New(net).WithOptimizer("Adam", fakeOptimizer{
		"exp_avg.head.weight": nn.Zeros(tensor.Shape{3, 2}),
	})
	ckpt.Epoch, ckpt.Step, ckpt.Loss = 3, 120, 0.25
	ckpt.Metadata = map[string]any{"lr": 0.01}
	require.NotEmpty(t, ckpt.RunID)
	require.NoError(t, ckpt.Save(path))

	loaded, err := Load(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, ckpt.RunID, loaded.RunID)
	assert.Equal(t, 3, loaded.Epoch)
	assert.Equal(t, int64(120), loaded.Step)
	assert.InDelta(t, 0.25, loaded.Loss, 1e-12)
	assert.Equal(t, "Adam", loaded.OptimizerType)
	assert.InDelta(t, 0.01, loaded.Metadata["lr"], 1e-12)
	assert.Contains(t, loaded.OptimizerState, "exp_avg.head.weight")

	want := net.StateDict()
	require.Len(t, loaded.NetworkWeights, len(want))
	for key, raw := range want {
		assert.True(t, raw.Equal(loaded.NetworkWeights[key]), key)
	}

	// Stored keys carry the field prefix.
	file := must.M1(serialization.ReadFile(path, serialization.ReadOptions{}))
	assert.Contains(t, file.Tensors, "network_weights.encoder.0.weight")
	assert.Equal(t, []string{NetworkWeightsField, OptimizerStateField}, FieldsOf(file.Tensors))
	assert.Equal(t, []string{NetworkWeightsField, OptimizerStateField}, file.Checkpoint.Fields)
}

func TestReadField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.born")
	require.NoError(t, New(testNetwork()).Save(path))

	weights, err := ReadField(path, NetworkWeightsField, ReadOptions{Device: tensor.CUDA})
	require.NoError(t, err)
	assert.Len(t, weights, 6)
	for _, raw := range weights {
		assert.Equal(t, tensor.CUDA, raw.Device())
	}

	all, err := ReadField(path, "", ReadOptions{})
	require.NoError(t, err)
	assert.Contains(t, all, "network_weights.head.bias")

	_, err = ReadField(path, "state_dict", ReadOptions{})
	require.ErrorIs(t, err, ErrFieldNotFound)

	_, err = ReadField(filepath.Join(t.TempDir(), "missing.born"), NetworkWeightsField, ReadOptions{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrFieldNotFound))
}

func TestReadFieldEmptyNetwork(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.born")
	require.NoError(t, New(nn.NewContainer()).Save(path))

	weights, err := ReadField(path, NetworkWeightsField, ReadOptions{})
	require.NoError(t, err)
	assert.Empty(t, weights)

	loaded, err := Load(path, ReadOptions{})
	require.NoError(t, err)
	assert.Empty(t, loaded.NetworkWeights)
}

func TestReadFieldSafeTensors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.safetensors")
	sd := map[string]*tensor.RawTensor{
		JoinField(NetworkWeightsField, "enc.w"): nn.Ones(tensor.Shape{4, 4}),
		"epoch_counter":                        nn.Zeros(tensor.Shape{1}),
	}
	require.NoError(t, serialization.WriteSafeTensors(path, sd, nil))

	weights, err := ReadField(path, NetworkWeightsField, ReadOptions{})
	require.NoError(t, err)
	require.Len(t, weights, 1)
	assert.Equal(t, tensor.Shape{4, 4}, weights["enc.w"].Shape())

	loaded, err := Load(path, ReadOptions{})
	require.NoError(t, err)
	assert.Empty(t, loaded.RunID)
	assert.Len(t, loaded.NetworkWeights, 1)
}

func TestExtractField(t *testing.T) {
	tensors := map[string]*tensor.RawTensor{
		"network_weights.a":        nn.Ones(tensor.Shape{1}),
		"network_weights_ema.b":    nn.Ones(tensor.Shape{1}),
		"optimizer_state.step":     nn.Ones(tensor.Shape{1}),
		"network_weights.enc.0.bn": nn.Ones(tensor.Shape{1}),
	}
	got, err := ExtractField(tensors, NetworkWeightsField)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "enc.0.bn"}, nn.SortedKeys(got))

	same, err := ExtractField(tensors, "")
	require.NoError(t, err)
	assert.Len(t, same, 4)

	assert.Equal(t, "k", JoinField("", "k"))
	assert.Equal(t, []string{"network_weights", "network_weights_ema", "optimizer_state"}, FieldsOf(tensors))
}
