package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/warmstart/internal/tensor"
)

// BornReader reads state dictionaries from .born files.
type BornReader struct {
	file       *os.File
	header     Header
	flags      uint32
	version    uint32
	dataOffset int64    // Offset where tensor data starts
	dataSize   int64    // Size of the data section
	checksum   [32]byte // SHA-256 checksum (v2 only)
	opts       ReaderOptions
	closed     bool
}

// ReaderOptions configures the behavior of BornReader.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
	Device                 tensor.Device   // Device tensors are placed on; zero value is tensor.CPU
}

// NewBornReader creates a new .born file reader with default options
// (strict validation, checksum verified, tensors on CPU).
func NewBornReader(path string) (*BornReader, error) {
	return NewBornReaderWithOptions(path, ReaderOptions{ValidationLevel: ValidationStrict})
}

// NewBornReaderWithOptions creates a new .born file reader with custom options.
func NewBornReaderWithOptions(path string, opts ReaderOptions) (*BornReader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	reader := &BornReader{file: file, opts: opts}
	if err := reader.init(); err != nil {
		_ = file.Close() // Best effort close on error
		return nil, err
	}
	return reader, nil
}

func (r *BornReader) init() error {
	if err := r.parseHeader(); err != nil {
		return fmt.Errorf("failed to parse header: %w", err)
	}

	info, err := r.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if r.version == FormatVersion {
		r.dataSize = info.Size() - r.dataOffset
	} else if r.dataOffset+r.dataSize > info.Size() {
		return fmt.Errorf("%w: data section truncated (%d bytes declared, %d available)",
			ErrOutOfBounds, r.dataSize, info.Size()-r.dataOffset)
	}

	if err := ValidateHeader(&r.header, r.dataSize, r.opts.ValidationLevel); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if r.version == FormatVersionV2 && !r.opts.SkipChecksumValidation {
		if err := r.verifyChecksum(); err != nil {
			return err
		}
	}
	return nil
}

// parseHeader reads the fixed header and the JSON header.
func (r *BornReader) parseHeader() error {
	prefix := make([]byte, 8)
	if _, err := io.ReadFull(r.file, prefix); err != nil {
		return fmt.Errorf("failed to read magic bytes: %w", err)
	}
	if string(prefix[:4]) != MagicBytes {
		return ErrInvalidMagic
	}
	r.version = binary.LittleEndian.Uint32(prefix[4:8])

	var headerSize uint64
	var fixedSize int64
	switch r.version {
	case FormatVersion:
		rest := make([]byte, FixedHeaderSizeV1-8)
		if _, err := io.ReadFull(r.file, rest); err != nil {
			return fmt.Errorf("failed to read fixed header: %w", err)
		}
		r.flags = binary.LittleEndian.Uint32(rest[0:4])
		headerSize = binary.LittleEndian.Uint64(rest[4:12])
		fixedSize = FixedHeaderSizeV1
	case FormatVersionV2:
		rest := make([]byte, FixedHeaderSizeV2-8)
		if _, err := io.ReadFull(r.file, rest); err != nil {
			return fmt.Errorf("failed to read fixed header: %w", err)
		}
		// rest is offset by the 8 bytes already consumed.
		r.flags = binary.LittleEndian.Uint32(rest[0:4])
		headerSize = binary.LittleEndian.Uint64(rest[8:16])
		r.dataSize = int64(binary.LittleEndian.Uint64(rest[16:24])) //nolint:gosec // G115: validated against file size
		copy(r.checksum[:], rest[ChecksumOffsetV2-8:ChecksumOffsetV2-8+ChecksumSize])
		fixedSize = FixedHeaderSizeV2
	default:
		return fmt.Errorf("%w: got %d, expected %d or %d", ErrUnsupportedVersion, r.version, FormatVersion, FormatVersionV2)
	}

	if headerSize > MaxHeaderSize {
		return ErrHeaderTooLarge
	}
	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r.file, headerBytes); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if err := json.Unmarshal(headerBytes, &r.header); err != nil {
		return fmt.Errorf("failed to parse header JSON: %w", err)
	}

	r.dataOffset = alignedOffset(fixedSize + int64(headerSize)) //nolint:gosec // G115: bounded by MaxHeaderSize
	return nil
}

// verifyChecksum streams the data section through SHA-256.
func (r *BornReader) verifyChecksum() error {
	if _, err := r.file.Seek(r.dataOffset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to tensor data: %w", err)
	}
	hasher := newTensorHasher()
	buf := make([]byte, 1<<20)
	remaining := r.dataSize
	for remaining > 0 {
		chunk := buf[:min(int64(len(buf)), remaining)]
		if _, err := io.ReadFull(r.file, chunk); err != nil {
			return fmt.Errorf("failed to read tensor data for checksum: %w", err)
		}
		hasher.add(chunk)
		remaining -= int64(len(chunk))
	}
	return ValidateChecksum(hasher.sum(), r.checksum)
}

// Header returns the file header.
func (r *BornReader) Header() Header {
	return r.header
}

// Version returns the on-disk format version.
func (r *BornReader) Version() int {
	return int(r.version)
}

// Metadata returns the metadata map from the header.
func (r *BornReader) Metadata() map[string]string {
	return r.header.Metadata
}

// TensorNames returns a list of all tensor names in the file, in file order.
func (r *BornReader) TensorNames() []string {
	names := make([]string, len(r.header.Tensors))
	for i, meta := range r.header.Tensors {
		names[i] = meta.Name
	}
	return names
}

// TensorInfo returns information about a specific tensor.
func (r *BornReader) TensorInfo(name string) (*TensorMeta, error) {
	for i := range r.header.Tensors {
		if r.header.Tensors[i].Name == name {
			return &r.header.Tensors[i], nil
		}
	}
	return nil, fmt.Errorf("tensor %s not found", name)
}

// LoadTensor loads a single tensor from the file onto the configured device.
func (r *BornReader) LoadTensor(name string) (*tensor.RawTensor, error) {
	if r.closed {
		return nil, ErrReaderClosed
	}
	meta, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}
	return r.loadTensor(meta)
}

func (r *BornReader) loadTensor(meta *TensorMeta) (*tensor.RawTensor, error) {
	dtype, ok := dtypeFromString(meta.DType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDType, meta.DType)
	}

	raw, err := tensor.NewRaw(tensor.Shape(meta.Shape), dtype, r.opts.Device)
	if err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", meta.Name, err)
	}
	if int64(raw.ByteSize()) != meta.Size {
		return nil, fmt.Errorf("tensor %s: header size %d does not match %s%v (%d bytes)",
			meta.Name, meta.Size, dtype, raw.Shape(), raw.ByteSize())
	}

	if _, err := r.file.ReadAt(raw.Data(), r.dataOffset+meta.Offset); err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	return raw, nil
}

// ReadStateDict reads all tensors into a state dictionary.
func (r *BornReader) ReadStateDict() (map[string]*tensor.RawTensor, error) {
	if r.closed {
		return nil, ErrReaderClosed
	}

	stateDict := make(map[string]*tensor.RawTensor, len(r.header.Tensors))
	for i := range r.header.Tensors {
		meta := &r.header.Tensors[i]
		raw, err := r.loadTensor(meta)
		if err != nil {
			return nil, fmt.Errorf("failed to load tensor %s: %w", meta.Name, err)
		}
		stateDict[meta.Name] = raw
	}
	return stateDict, nil
}

// Close closes the reader and the underlying file.
func (r *BornReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}
