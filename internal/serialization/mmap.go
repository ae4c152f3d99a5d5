package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
)

// MmapReader reads the header of a .born file through a read-only memory
// mapping. With SkipChecksumValidation the data section is never paged in,
// so listing the tensors of a large checkpoint stays cheap; otherwise the
// checksum is computed over the mapping without copying it.
type MmapReader struct {
	file       *os.File
	data       []byte // mapped file, read-only
	header     Header
	version    uint32
	dataOffset int64
	dataSize   int64
	checksum   [32]byte
	opts       ReaderOptions
	closed     bool
}

// NewMmapReader maps the file at path and validates its header according to
// opts. Always Close the reader: it owns the mapping.
func NewMmapReader(path string, opts ReaderOptions) (*MmapReader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.Size() < FixedHeaderSizeV1 {
		_ = file.Close()
		return nil, fmt.Errorf("%w: file too small (%d bytes)", ErrOutOfBounds, stat.Size())
	}

	data, err := mmapFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("mmap failed: %w", err)
	}

	r := &MmapReader{file: file, data: data, opts: opts}
	if err := r.init(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func (r *MmapReader) init() error {
	if err := r.parseHeader(); err != nil {
		return fmt.Errorf("failed to parse header: %w", err)
	}
	if err := ValidateHeader(&r.header, r.dataSize, r.opts.ValidationLevel); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if r.version == FormatVersionV2 && !r.opts.SkipChecksumValidation {
		return ValidateChecksum(ComputeChecksum(r.dataSection()), r.checksum)
	}
	return nil
}

// parseHeader decodes the fixed header and the JSON header from the mapping.
func (r *MmapReader) parseHeader() error {
	size := int64(len(r.data))
	if string(r.data[0:4]) != MagicBytes {
		return ErrInvalidMagic
	}
	r.version = binary.LittleEndian.Uint32(r.data[4:8])

	var headerSize uint64
	var jsonOffset int64
	switch r.version {
	case FormatVersion:
		headerSize = binary.LittleEndian.Uint64(r.data[12:20])
		jsonOffset = FixedHeaderSizeV1
	case FormatVersionV2:
		if size < FixedHeaderSizeV2 {
			return fmt.Errorf("%w: file too small for v2 (%d bytes)", ErrOutOfBounds, size)
		}
		headerSize = binary.LittleEndian.Uint64(r.data[16:24])
		r.dataSize = int64(binary.LittleEndian.Uint64(r.data[24:32])) //nolint:gosec // G115: checked against the mapping below
		copy(r.checksum[:], r.data[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize])
		jsonOffset = FixedHeaderSizeV2
	default:
		return fmt.Errorf("%w: got %d, expected %d or %d", ErrUnsupportedVersion, r.version, FormatVersion, FormatVersionV2)
	}

	if headerSize > MaxHeaderSize {
		return ErrHeaderTooLarge
	}
	headerEnd := jsonOffset + int64(headerSize) //nolint:gosec // G115: bounded by MaxHeaderSize
	if headerEnd > size {
		return fmt.Errorf("%w: header ends at %d, file has %d bytes", ErrOutOfBounds, headerEnd, size)
	}
	if err := json.Unmarshal(r.data[jsonOffset:headerEnd], &r.header); err != nil {
		return fmt.Errorf("failed to parse header JSON: %w", err)
	}

	r.dataOffset = alignedOffset(headerEnd)
	if r.version == FormatVersion {
		r.dataSize = max(size-r.dataOffset, 0)
	} else if r.dataSize < 0 || r.dataOffset+r.dataSize > size {
		return fmt.Errorf("%w: data section truncated (%d bytes declared, %d available)",
			ErrOutOfBounds, r.dataSize, size-r.dataOffset)
	}
	return nil
}

func (r *MmapReader) dataSection() []byte {
	return r.data[r.dataOffset : r.dataOffset+r.dataSize]
}

// Close unmaps and closes the file.
func (r *MmapReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.data != nil {
		err = munmapFile(r.data)
		r.data = nil
	}
	if closeErr := r.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Header returns the file header.
func (r *MmapReader) Header() Header {
	return r.header
}

// Version returns the on-disk format version.
func (r *MmapReader) Version() int {
	return int(r.version)
}
