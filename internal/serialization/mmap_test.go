package serialization

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmapReader(t *testing.T) {
	for name, version := range map[string]int{"v1": FormatVersion, "v2": FormatVersionV2} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "model.born")
			writer, err := newBornWriter(path, version)
			require.NoError(t, err)
			require.NoError(t, writer.WriteStateDict(testStateDict(t), "Sequential", nil))
			require.NoError(t, writer.Close())

			reader, err := NewMmapReader(path, ReaderOptions{})
			require.NoError(t, err)
			assert.Equal(t, version, reader.Version())
			assert.Equal(t, "Sequential", reader.Header().ModelType)
			assert.Len(t, reader.Header().Tensors, 4)

			require.NoError(t, reader.Close())
			require.NoError(t, reader.Close())
		})
	}
}

func TestMmapReaderDetectsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.born")
	require.NoError(t, WriteFile(path, testStateDict(t), Header{ModelType: "Sequential"}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	content[len(content)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, content, 0o600))

	_, err = NewMmapReader(path, ReaderOptions{})
	require.ErrorIs(t, err, ErrChecksumMismatch)
	_, err = ReadInfo(path, ReadOptions{})
	require.ErrorIs(t, err, ErrChecksumMismatch)

	reader, err := NewMmapReader(path, ReaderOptions{SkipChecksumValidation: true})
	require.NoError(t, err)
	require.NoError(t, reader.Close())

	info, err := ReadInfo(path, ReadOptions{SkipChecksum: true})
	require.NoError(t, err)
	assert.Len(t, info.Tensors, 4)
}

func TestMmapReaderRejectsTruncated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.born")
	require.NoError(t, WriteFile(path, testStateDict(t), Header{}))
	content, err := os.ReadFile(path)
	require.NoError(t, err)

	truncated := filepath.Join(dir, "truncated.born")
	require.NoError(t, os.WriteFile(truncated, content[:len(content)-4], 0o600))
	_, err = NewMmapReader(truncated, ReaderOptions{})
	require.ErrorIs(t, err, ErrOutOfBounds)

	tiny := filepath.Join(dir, "tiny.born")
	require.NoError(t, os.WriteFile(tiny, []byte("BORN"), 0o600))
	_, err = NewMmapReader(tiny, ReaderOptions{})
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestReadInfo(t *testing.T) {
	dir := t.TempDir()
	want := testStateDict(t)
	born := filepath.Join(dir, "model.born")
	require.NoError(t, WriteFile(born, want, Header{
		Metadata:       map[string]string{"task": "seg"},
		CheckpointMeta: &CheckpointMeta{IsCheckpoint: true, RunID: "run-1", Epoch: 3},
	}))
	st := filepath.Join(dir, "model.safetensors")
	require.NoError(t, WriteSafeTensors(st, want, map[string]string{"task": "seg"}))

	for name, path := range map[string]string{"born": born, "safetensors": st} {
		t.Run(name, func(t *testing.T) {
			info, err := ReadInfo(path, ReadOptions{})
			require.NoError(t, err)
			assert.Equal(t, "seg", info.Metadata["task"])
			require.Len(t, info.Tensors, len(want))

			names := make([]string, len(info.Tensors))
			for i, meta := range info.Tensors {
				names[i] = meta.Name
				raw := want[meta.Name]
				assert.Equal(t, raw.DType().String(), meta.DType, meta.Name)
				assert.Equal(t, []int(raw.Shape()), meta.Shape, meta.Name)
				assert.Equal(t, int64(raw.ByteSize()), meta.Size, meta.Name)
			}
			assert.Equal(t, []string{"encoder.0.bias", "encoder.0.weight", "encoder.1.weight", "global_step"}, names)
		})
	}

	info, err := ReadInfo(born, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, FormatBorn, info.Format)
	assert.Equal(t, FormatVersionV2, info.Version)
	require.NotNil(t, info.Checkpoint)
	assert.Equal(t, "run-1", info.Checkpoint.RunID)

	info, err = ReadInfo(st, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, FormatSafeTensors, info.Format)
	assert.Zero(t, info.Version)
	assert.Nil(t, info.Checkpoint)
}
