package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertFloatRoundTrip(t *testing.T) {
	values := []float32{0, 1, -2, 0.5, 1024, -0.25}
	src, err := FromFloat32(Shape{2, 3}, values, CPU)
	require.NoError(t, err)

	for _, dt := range []DataType{Float64, Float16, BFloat16} {
		t.Run(dt.String(), func(t *testing.T) {
			converted, err := src.Convert(dt)
			require.NoError(t, err)
			assert.Equal(t, dt, converted.DType())
			assert.Equal(t, src.Shape(), converted.Shape())
			assert.Equal(t, len(values)*dt.Size(), len(converted.Data()))

			back, err := converted.Convert(Float32)
			require.NoError(t, err)
			// All values above are exactly representable in every float type.
			assert.Equal(t, values, back.AsFloat32())
		})
	}
}

func TestConvertSameTypeClones(t *testing.T) {
	src, err := Full(Shape{3}, 2, CPU)
	require.NoError(t, err)
	c, err := src.Convert(Float32)
	require.NoError(t, err)
	assert.NotSame(t, src, c)
	assert.True(t, src.Equal(c))
}

func TestConvertRejectsIntegers(t *testing.T) {
	src, err := NewRaw(Shape{3}, Int64, CPU)
	require.NoError(t, err)
	_, err = src.Convert(Float32)
	require.Error(t, err)

	f, err := Full(Shape{3}, 2, CPU)
	require.NoError(t, err)
	_, err = f.Convert(Uint8)
	require.Error(t, err)
}

func TestBFloat16Rounding(t *testing.T) {
	// 1 + 2^-8 sits exactly between two bfloat16 values and rounds to even (1.0).
	assert.Equal(t, uint16(0x3F80), bfloat16Bits(1+1.0/256))
	// 1 + 3*2^-8 rounds up.
	assert.Equal(t, uint16(0x3F82), bfloat16Bits(1+3.0/256))
}
