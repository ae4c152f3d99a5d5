package serialization

import (
	"crypto/sha256"
	"hash"
)

// ComputeChecksum computes SHA-256 checksum of data.
func ComputeChecksum(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// tensorHasher accumulates the checksum of tensor data as it is written or
// read, so neither side needs the whole data section in one buffer.
type tensorHasher struct {
	h hash.Hash
}

func newTensorHasher() *tensorHasher {
	return &tensorHasher{h: sha256.New()}
}

func (t *tensorHasher) add(data []byte) {
	_, _ = t.h.Write(data) // hash.Hash never returns an error
}

func (t *tensorHasher) sum() (sum [32]byte) {
	copy(sum[:], t.h.Sum(nil))
	return sum
}

// ValidateChecksum compares computed checksum against stored checksum.
// Returns ErrChecksumMismatch if they don't match.
func ValidateChecksum(computed, stored [32]byte) error {
	if computed != stored {
		return ErrChecksumMismatch
	}
	return nil
}
