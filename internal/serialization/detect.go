package serialization

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/born-ml/warmstart/internal/tensor"
)

// Format identifies an on-disk tensor container.
type Format int

// Known container formats.
const (
	FormatUnknown Format = iota
	FormatBorn
	FormatSafeTensors
)

// String returns the conventional file extension of the format, without the dot.
func (f Format) String() string {
	switch f {
	case FormatBorn:
		return "born"
	case FormatSafeTensors:
		return "safetensors"
	default:
		return "unknown"
	}
}

// DetectFormat sniffs the first bytes of path. Extensions are not trusted.
func DetectFormat(path string) (Format, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	prefix := make([]byte, 9)
	n, err := io.ReadFull(file, prefix)
	if err != nil && n < 4 {
		return FormatUnknown, fmt.Errorf("%w: file too short", ErrUnknownFormat)
	}
	if string(prefix[:4]) == MagicBytes {
		return FormatBorn, nil
	}
	// SafeTensors: 8-byte header size followed by a JSON object.
	if n == len(prefix) && prefix[8] == '{' && binary.LittleEndian.Uint64(prefix[:8]) <= MaxHeaderSize {
		return FormatSafeTensors, nil
	}
	return FormatUnknown, ErrUnknownFormat
}

// File is the content of a tensor container read in one go.
type File struct {
	Format     Format
	Tensors    map[string]*tensor.RawTensor
	Metadata   map[string]string
	Checkpoint *CheckpointMeta // Only set for .born checkpoints.
}

// ReadOptions configures ReadFile.
type ReadOptions struct {
	Device          tensor.Device
	ValidationLevel ValidationLevel
	SkipChecksum    bool
}

// ReadFile detects the format of path and reads all its tensors.
func ReadFile(path string, opts ReadOptions) (*File, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatBorn:
		readerOpts := ReaderOptions{
			SkipChecksumValidation: opts.SkipChecksum,
			ValidationLevel:        opts.ValidationLevel,
			Device:                 opts.Device,
		}
		reader, err := NewBornReaderWithOptions(path, readerOpts)
		if err != nil {
			return nil, err
		}
		defer func() { _ = reader.Close() }()
		tensors, err := reader.ReadStateDict()
		if err != nil {
			return nil, err
		}
		header := reader.Header()
		return &File{Format: format, Tensors: tensors, Metadata: header.Metadata, Checkpoint: header.CheckpointMeta}, nil

	case FormatSafeTensors:
		reader, err := NewSafeTensorsReader(path, opts.Device)
		if err != nil {
			return nil, err
		}
		defer func() { _ = reader.Close() }()
		tensors, err := reader.ReadStateDict()
		if err != nil {
			return nil, err
		}
		return &File{Format: format, Tensors: tensors, Metadata: reader.Metadata()}, nil
	}
	return nil, ErrUnknownFormat
}

// FileInfo is the header of a tensor container: what ReadFile would load,
// without the tensor data.
type FileInfo struct {
	Format     Format
	Version    int          // .born format version, 0 for SafeTensors.
	Tensors    []TensorMeta // Sorted by name; Offset is relative to the data section.
	Metadata   map[string]string
	Checkpoint *CheckpointMeta
}

// ReadInfo reads only the header of path. A .born file is memory-mapped, so
// with opts.SkipChecksum its data section is never read; otherwise the
// checksum is verified over the mapping. Tensor dtypes are reported by their
// tensor.DataType names for both formats.
func ReadInfo(path string, opts ReadOptions) (*FileInfo, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	info := &FileInfo{Format: format}
	switch format {
	case FormatBorn:
		reader, err := NewMmapReader(path, ReaderOptions{
			SkipChecksumValidation: opts.SkipChecksum,
			ValidationLevel:        opts.ValidationLevel,
		})
		if err != nil {
			return nil, err
		}
		defer func() { _ = reader.Close() }()
		header := reader.Header()
		info.Version = reader.Version()
		info.Tensors = slices.Clone(header.Tensors)
		info.Metadata = header.Metadata
		info.Checkpoint = header.CheckpointMeta

	case FormatSafeTensors:
		reader, err := NewSafeTensorsReader(path, opts.Device)
		if err != nil {
			return nil, err
		}
		defer func() { _ = reader.Close() }()
		for _, name := range reader.TensorNames() {
			t := reader.header.Tensors[name]
			dtype := string(t.DType)
			if dt, ok := safeTensorsDTypes[t.DType]; ok {
				dtype = dt.String()
			}
			info.Tensors = append(info.Tensors, TensorMeta{
				Name:   name,
				DType:  dtype,
				Shape:  t.Shape,
				Offset: t.DataOffsets[0],
				Size:   t.DataOffsets[1] - t.DataOffsets[0],
			})
		}
		info.Metadata = reader.Metadata()

	default:
		return nil, ErrUnknownFormat
	}

	slices.SortFunc(info.Tensors, func(a, b TensorMeta) int { return strings.Compare(a.Name, b.Name) })
	return info, nil
}
