//go:build !unix

package serialization

import (
	"io"
	"os"
)

// mmapFile reads the whole file where memory mapping is not wired up.
func mmapFile(f *os.File, size int64) ([]byte, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(f, 0, size), data); err != nil {
		return nil, err
	}
	return data, nil
}

func munmapFile([]byte) error {
	return nil
}
