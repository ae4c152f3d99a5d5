package serialization

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/warmstart/internal/tensor"
)

// testStateDict builds a small mixed-dtype state dict with known values.
func testStateDict(t *testing.T) map[string]*tensor.RawTensor {
	t.Helper()

	weight, err := tensor.FromFloat32(tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6}, tensor.CPU)
	require.NoError(t, err)
	bias, err := tensor.FromFloat32(tensor.Shape{3}, []float32{0.1, 0.2, 0.3}, tensor.CPU)
	require.NoError(t, err)
	half, err := weight.Convert(tensor.Float16)
	require.NoError(t, err)
	steps, err := tensor.NewRaw(tensor.Shape{1}, tensor.Int64, tensor.CPU)
	require.NoError(t, err)

	return map[string]*tensor.RawTensor{
		"encoder.0.weight": weight,
		"encoder.0.bias":   bias,
		"encoder.1.weight": half,
		"global_step":      steps,
	}
}

func assertSameStateDict(t *testing.T, want, got map[string]*tensor.RawTensor) {
	t.Helper()
	require.Len(t, got, len(want))
	for name, w := range want {
		g, ok := got[name]
		require.True(t, ok, "missing %s", name)
		assert.True(t, w.Equal(g), "tensor %s differs: want %s got %s", name, w, g)
	}
}

func TestBornRoundTrip(t *testing.T) {
	for name, version := range map[string]int{"v1": FormatVersion, "v2": FormatVersionV2} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "model.born")
			want := testStateDict(t)

			writer, err := newBornWriter(path, version)
			require.NoError(t, err)
			require.NoError(t, writer.WriteStateDict(want, "Sequential", map[string]string{"source": "test"}))
			require.NoError(t, writer.Close())

			reader, err := NewBornReader(path)
			require.NoError(t, err)
			defer func() { _ = reader.Close() }()

			assert.Equal(t, version, reader.Version())
			assert.Equal(t, "Sequential", reader.Header().ModelType)
			assert.Equal(t, "test", reader.Metadata()["source"])
			assert.Equal(t, []string{"encoder.0.bias", "encoder.0.weight", "encoder.1.weight", "global_step"},
				reader.TensorNames())

			got, err := reader.ReadStateDict()
			require.NoError(t, err)
			assertSameStateDict(t, want, got)
		})
	}
}

func TestBornReaderDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.born")
	require.NoError(t, WriteFile(path, testStateDict(t), Header{ModelType: "Linear"}))

	reader, err := NewBornReaderWithOptions(path, ReaderOptions{Device: tensor.CUDA})
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	raw, err := reader.LoadTensor("encoder.0.weight")
	require.NoError(t, err)
	assert.Equal(t, tensor.CUDA, raw.Device())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, raw.AsFloat32())

	_, err = reader.LoadTensor("missing")
	require.Error(t, err)
}

func TestBornReaderChecksumMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.born")
	require.NoError(t, WriteFile(path, testStateDict(t), Header{}))

	// Flip the last byte of the data section.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = NewBornReader(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChecksumMismatch), "got %v", err)

	reader, err := NewBornReaderWithOptions(path, ReaderOptions{SkipChecksumValidation: true})
	require.NoError(t, err)
	require.NoError(t, reader.Close())
}

func TestBornReaderRejectsGarbage(t *testing.T) {
	dir := t.TempDir()

	badMagic := filepath.Join(dir, "bad.born")
	require.NoError(t, os.WriteFile(badMagic, []byte("NOPE0000000000000000000000"), 0o600))
	_, err := NewBornReader(badMagic)
	assert.ErrorIs(t, err, ErrInvalidMagic)

	badVersion := filepath.Join(dir, "version.born")
	require.NoError(t, os.WriteFile(badVersion, []byte("BORN\x09\x00\x00\x00"), 0o600))
	_, err = NewBornReader(badVersion)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = NewBornReader(filepath.Join(dir, "absent.born"))
	require.Error(t, err)
}

func TestBornReaderTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.born")
	require.NoError(t, WriteFile(path, testStateDict(t), Header{}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-4))

	_, err = NewBornReader(path)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestReaderClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.born")
	require.NoError(t, WriteFile(path, testStateDict(t), Header{}))

	reader, err := NewBornReader(path)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.NoError(t, reader.Close())

	_, err = reader.ReadStateDict()
	assert.ErrorIs(t, err, ErrReaderClosed)
}

func TestCheckpointHeaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.born")
	header := Header{
		ModelType: "Checkpoint",
		CheckpointMeta: &CheckpointMeta{
			IsCheckpoint: true,
			RunID:        "run-1",
			Fields:       []string{"network_weights"},
			Epoch:        3,
			Step:         1200,
			Loss:         0.25,
		},
	}
	require.NoError(t, WriteFile(path, testStateDict(t), header))

	file, err := ReadFile(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, FormatBorn, file.Format)
	require.NotNil(t, file.Checkpoint)
	assert.Equal(t, "run-1", file.Checkpoint.RunID)
	assert.Equal(t, int64(1200), file.Checkpoint.Step)
	assert.Equal(t, []string{"network_weights"}, file.Checkpoint.Fields)
}
