package serialization

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTensorHasherMatchesOneShot(t *testing.T) {
	h := newTensorHasher()
	h.add([]byte("encoder."))
	h.add(nil)
	h.add([]byte("0.weight"))
	assert.Equal(t, ComputeChecksum([]byte("encoder.0.weight")), h.sum())
}

func TestValidateChecksum(t *testing.T) {
	checksum := ComputeChecksum([]byte("test data"))
	require.NoError(t, ValidateChecksum(checksum, checksum))
	require.ErrorIs(t, ValidateChecksum(checksum, [32]byte{1, 2, 3}), ErrChecksumMismatch)
}

// TestKnownVectorSHA256 verifies SHA-256 produces correct known vectors.
func TestKnownVectorSHA256(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"hello world", "hello world", "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checksum := ComputeChecksum([]byte(tt.input))
			assert.Equal(t, tt.expected, hex.EncodeToString(checksum[:]))
		})
	}
}
