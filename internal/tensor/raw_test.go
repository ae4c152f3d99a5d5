package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RawTensor Tests

func TestRawTensorAsFloat32(t *testing.T) {
	raw, err := NewRaw(Shape{3, 2}, Float32, CPU)
	require.NoError(t, err)
	data := raw.AsFloat32()
	require.Len(t, data, 6)

	// Modify and verify zero-copy
	data[0] = 42
	assert.Equal(t, float32(42), raw.AsFloat32()[0])
	assert.Equal(t, 24, raw.ByteSize())
}

func TestNewRawInvalidShape(t *testing.T) {
	_, err := NewRaw(Shape{2, -1}, Float32, CPU)
	require.Error(t, err)
}

func TestNewRawZeroSize(t *testing.T) {
	raw, err := NewRaw(Shape{2, 0}, Float32, CPU)
	require.NoError(t, err)
	assert.Equal(t, 0, raw.NumElements())
	assert.Equal(t, 0, raw.ByteSize())
	assert.Empty(t, raw.AsFloat32())
	assert.True(t, raw.Equal(raw.Clone()))

	wide, err := NewRaw(Shape{0}, Float64, CPU)
	require.NoError(t, err)
	assert.Empty(t, wide.AsFloat64())

	half, err := wide.Convert(Float16)
	require.NoError(t, err)
	assert.Equal(t, Shape{0}, half.Shape())
}

func TestFromFloat32(t *testing.T) {
	raw, err := FromFloat32(Shape{2, 2}, []float32{1, 2, 3, 4}, CPU)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, raw.AsFloat32())

	_, err = FromFloat32(Shape{2, 2}, []float32{1, 2, 3}, CPU)
	require.Error(t, err)
}

func TestRawTensorCloneIsDeep(t *testing.T) {
	a, err := Full(Shape{4}, 1, CPU)
	require.NoError(t, err)
	b := a.Clone()
	b.AsFloat32()[0] = 7
	assert.Equal(t, float32(1), a.AsFloat32()[0])
	assert.False(t, a.Equal(b))
}

func TestRawTensorTo(t *testing.T) {
	a, err := Full(Shape{2}, 3, CUDA)
	require.NoError(t, err)

	same := a.To(CUDA)
	assert.Same(t, a, same)

	host := a.To(CPU)
	assert.Equal(t, CPU, host.Device())
	assert.Equal(t, CUDA, a.Device())
	assert.True(t, a.Equal(host), "device is not part of equality")
}

func TestRawTensorCopyFrom(t *testing.T) {
	dst, err := Full(Shape{2, 2}, 0, CPU)
	require.NoError(t, err)
	src, err := Full(Shape{2, 2}, 5, CPU)
	require.NoError(t, err)
	require.NoError(t, dst.CopyFrom(src))
	assert.Equal(t, []float32{5, 5, 5, 5}, dst.AsFloat32())

	wrong, err := Full(Shape{4}, 5, CPU)
	require.NoError(t, err)
	require.Error(t, dst.CopyFrom(wrong))

	ints, err := NewRaw(Shape{2, 2}, Int32, CPU)
	require.NoError(t, err)
	require.Error(t, dst.CopyFrom(ints))
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "(4, 4)", Shape{4, 4}.String())
	assert.Equal(t, "()", Shape{}.String())
	assert.Equal(t, "float32(9, 9)@CPU", must(Full(Shape{9, 9}, 0, CPU)).String())
}

func TestParseDataTypeAndDevice(t *testing.T) {
	for dt := Float32; dt <= BFloat16; dt++ {
		parsed, err := ParseDataType(dt.String())
		require.NoError(t, err)
		assert.Equal(t, dt, parsed)
	}
	_, err := ParseDataType("complex64")
	require.Error(t, err)

	d, err := ParseDevice("CUDA")
	require.NoError(t, err)
	assert.Equal(t, CUDA, d)
	_, err = ParseDevice("tpu")
	require.Error(t, err)
}

func must(raw *RawTensor, err error) *RawTensor {
	if err != nil {
		panic(err)
	}
	return raw
}
