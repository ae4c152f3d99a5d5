package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/born-ml/warmstart/internal/tensor"
)

// BornWriter writes state dictionaries in .born format.
type BornWriter struct {
	file    *os.File
	version int
	closed  bool
}

// NewBornWriter creates a new .born file writer producing format v2 (with checksum).
func NewBornWriter(path string) (*BornWriter, error) {
	return newBornWriter(path, FormatVersionV2)
}

// NewBornWriterV1 creates a writer producing the legacy v1 layout (no checksum).
func NewBornWriterV1(path string) (*BornWriter, error) {
	return newBornWriter(path, FormatVersion)
}

func newBornWriter(path string, version int) (*BornWriter, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &BornWriter{file: file, version: version}, nil
}

// WriteFile writes stateDict with header to path using format v2 and closes the file.
func WriteFile(path string, stateDict map[string]*tensor.RawTensor, header Header) (err error) {
	writer, err := NewBornWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return writer.WriteStateDictWithHeader(stateDict, header)
}

// WriteStateDict writes a state dictionary to the .born file with a default header.
func (w *BornWriter) WriteStateDict(stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string) error {
	return w.WriteStateDictWithHeader(stateDict, Header{
		ModelType: modelType,
		Metadata:  metadata,
	})
}

// WriteStateDictWithHeader writes a state dictionary with a custom header.
//
// Tensor table, format version, producer version and creation time are filled in
// by the writer. Tensors are stored in lexical key order.
//
//nolint:gocyclo,cyclop // Binary layout is written in one place on purpose
func (w *BornWriter) WriteStateDictWithHeader(stateDict map[string]*tensor.RawTensor, header Header) error {
	if w.closed {
		return ErrWriterClosed
	}

	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header.FormatVersion = w.version
	header.BornVersion = producerVersion
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	hasher := newTensorHasher()
	var dataSize int64
	header.Tensors = make([]TensorMeta, 0, len(names))
	for _, name := range names {
		raw := stateDict[name]
		size := int64(raw.ByteSize())
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  raw.DType().String(),
			Shape:  []int(raw.Shape()),
			Offset: dataSize,
			Size:   size,
		})
		hasher.add(raw.Data())
		dataSize += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	headerSize := uint64(len(headerJSON))

	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if header.CheckpointMeta != nil && header.CheckpointMeta.IsCheckpoint {
		flags |= FlagHasOptimizer
	}

	var fixed []byte
	switch w.version {
	case FormatVersion:
		fixed = make([]byte, FixedHeaderSizeV1)
		copy(fixed[0:4], MagicBytes)
		binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
		binary.LittleEndian.PutUint32(fixed[8:12], flags)
		binary.LittleEndian.PutUint64(fixed[12:20], headerSize)
	case FormatVersionV2:
		// 0x00 magic, 0x04 version, 0x08 flags, 0x0C reserved,
		// 0x10 header size, 0x18 data size, 0x20 SHA-256 of data section.
		fixed = make([]byte, FixedHeaderSizeV2)
		copy(fixed[0:4], MagicBytes)
		binary.LittleEndian.PutUint32(fixed[4:8], FormatVersionV2)
		binary.LittleEndian.PutUint32(fixed[8:12], flags)
		binary.LittleEndian.PutUint64(fixed[16:24], headerSize)
		binary.LittleEndian.PutUint64(fixed[24:32], uint64(dataSize)) //nolint:gosec // G115: sizes are non-negative
		checksum := hasher.sum()
		copy(fixed[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize], checksum[:])
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, w.version)
	}

	if _, err := w.file.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.file.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	pos := int64(len(fixed)) + int64(headerSize)
	if padding := alignedOffset(pos) - pos; padding > 0 {
		if _, err := w.file.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	for _, name := range names {
		if _, err := w.file.Write(stateDict[name].Data()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the writer and the underlying file.
func (w *BornWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}
