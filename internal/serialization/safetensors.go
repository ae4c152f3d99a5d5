package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/born-ml/warmstart/internal/tensor"
)

// SafeTensors format:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: raw bytes]

// SafeTensorsDType represents supported SafeTensors data types.
type SafeTensorsDType string

// Supported SafeTensors dtypes.
const (
	SafeTensorsF16  SafeTensorsDType = "F16"
	SafeTensorsBF16 SafeTensorsDType = "BF16"
	SafeTensorsF32  SafeTensorsDType = "F32"
	SafeTensorsF64  SafeTensorsDType = "F64"
	SafeTensorsI32  SafeTensorsDType = "I32"
	SafeTensorsI64  SafeTensorsDType = "I64"
	SafeTensorsU8   SafeTensorsDType = "U8"
	SafeTensorsBool SafeTensorsDType = "BOOL"
)

var safeTensorsDTypes = map[SafeTensorsDType]tensor.DataType{
	SafeTensorsF16:  tensor.Float16,
	SafeTensorsBF16: tensor.BFloat16,
	SafeTensorsF32:  tensor.Float32,
	SafeTensorsF64:  tensor.Float64,
	SafeTensorsI32:  tensor.Int32,
	SafeTensorsI64:  tensor.Int64,
	SafeTensorsU8:   tensor.Uint8,
	SafeTensorsBool: tensor.Bool,
}

// SafeTensorInfo describes a tensor in SafeTensors format.
type SafeTensorInfo struct {
	DType       SafeTensorsDType `json:"dtype"`
	Shape       []int            `json:"shape"`
	DataOffsets [2]int64         `json:"data_offsets"` // [start, end)
}

// SafeTensorsHeader is the JSON header in SafeTensors format.
type SafeTensorsHeader struct {
	Metadata map[string]string
	Tensors  map[string]SafeTensorInfo
}

// UnmarshalJSON splits the flat SafeTensors header into metadata and tensors.
func (h *SafeTensorsHeader) UnmarshalJSON(data []byte) error {
	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return err
	}

	h.Tensors = make(map[string]SafeTensorInfo, len(rawMap))
	for key, value := range rawMap {
		if key == "__metadata__" {
			if err := json.Unmarshal(value, &h.Metadata); err != nil {
				return fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
			continue
		}
		var info SafeTensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		h.Tensors[key] = info
	}
	return nil
}

// MarshalJSON writes metadata and tensors back into one flat object.
func (h SafeTensorsHeader) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(h.Tensors)+1)
	if len(h.Metadata) > 0 {
		flat["__metadata__"] = h.Metadata
	}
	for name, info := range h.Tensors {
		flat[name] = info
	}
	return json.Marshal(flat)
}

// SafeTensorsReader reads SafeTensors format files.
type SafeTensorsReader struct {
	file       *os.File
	header     SafeTensorsHeader
	dataOffset int64 // Offset where tensor data starts
	dataSize   int64
	device     tensor.Device
}

// NewSafeTensorsReader opens path and parses its header. Tensors are placed on device.
func NewSafeTensorsReader(path string, device tensor.Device) (*SafeTensorsReader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	reader := &SafeTensorsReader{file: file, device: device}
	if err := reader.parseHeader(); err != nil {
		_ = file.Close() // Best effort close on error
		return nil, err
	}
	return reader, nil
}

func (r *SafeTensorsReader) parseHeader() error {
	var headerSize uint64
	if err := binary.Read(r.file, binary.LittleEndian, &headerSize); err != nil {
		return fmt.Errorf("failed to read header size: %w", err)
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

	info, err := r.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	r.dataOffset = int64(8 + headerSize) //nolint:gosec // G115: bounded by MaxHeaderSize
	r.dataSize = info.Size() - r.dataOffset

	metas := make([]TensorMeta, 0, len(r.header.Tensors))
	for name, t := range r.header.Tensors {
		if err := ValidateTensorName(name); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		metas = append(metas, TensorMeta{
			Name:   name,
			Offset: t.DataOffsets[0],
			Size:   t.DataOffsets[1] - t.DataOffsets[0],
		})
	}
	if err := ValidateTensorOffsets(metas, r.dataSize); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// Close closes the SafeTensors file.
func (r *SafeTensorsReader) Close() error {
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

// Metadata returns the metadata map from the header.
func (r *SafeTensorsReader) Metadata() map[string]string {
	return r.header.Metadata
}

// TensorNames returns all tensor names in lexical order.
func (r *SafeTensorsReader) TensorNames() []string {
	names := make([]string, 0, len(r.header.Tensors))
	for name := range r.header.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TensorInfo returns information about a specific tensor.
func (r *SafeTensorsReader) TensorInfo(name string) (*SafeTensorInfo, error) {
	info, ok := r.header.Tensors[name]
	if !ok {
		return nil, fmt.Errorf("tensor %s not found", name)
	}
	return &info, nil
}

// LoadTensor loads one tensor. F16 and BF16 tensors keep their dtype;
// use RawTensor.Convert to widen them.
func (r *SafeTensorsReader) LoadTensor(name string) (*tensor.RawTensor, error) {
	if r.file == nil {
		return nil, ErrReaderClosed
	}
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	dtype, ok := safeTensorsDTypes[info.DType]
	if !ok {
		return nil, fmt.Errorf("%w: %s (tensor %s)", ErrUnsupportedDType, info.DType, name)
	}
	raw, err := tensor.NewRaw(tensor.Shape(info.Shape), dtype, r.device)
	if err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", name, err)
	}
	if size := info.DataOffsets[1] - info.DataOffsets[0]; size != int64(raw.ByteSize()) {
		return nil, fmt.Errorf("invalid data offsets for tensor %s: [%d, %d] for %d bytes",
			name, info.DataOffsets[0], info.DataOffsets[1], raw.ByteSize())
	}

	if _, err := r.file.ReadAt(raw.Data(), r.dataOffset+info.DataOffsets[0]); err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	return raw, nil
}

// ReadStateDict loads every tensor in the file.
func (r *SafeTensorsReader) ReadStateDict() (map[string]*tensor.RawTensor, error) {
	stateDict := make(map[string]*tensor.RawTensor, len(r.header.Tensors))
	for name := range r.header.Tensors {
		raw, err := r.LoadTensor(name)
		if err != nil {
			return nil, fmt.Errorf("failed to load tensor %s: %w", name, err)
		}
		stateDict[name] = raw
	}
	return stateDict, nil
}

// WriteSafeTensors writes tensors to a SafeTensors file in lexical key order.
func WriteSafeTensors(path string, stateDict map[string]*tensor.RawTensor, metadata map[string]string) (err error) {
	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		names = append(names, name)
	}
	sort.Strings(names)

	header := SafeTensorsHeader{Metadata: metadata, Tensors: make(map[string]SafeTensorInfo, len(names))}
	var offset int64
	for _, name := range names {
		raw := stateDict[name]
		size := int64(raw.ByteSize())
		header.Tensors[name] = SafeTensorInfo{
			DType:       safeTensorsDTypeOf(raw.DType()),
			Shape:       []int(raw.Shape()),
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := binary.Write(file, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := file.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, name := range names {
		if _, err := file.Write(stateDict[name].Data()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}
	return nil
}

func safeTensorsDTypeOf(dt tensor.DataType) SafeTensorsDType {
	for st, d := range safeTensorsDTypes {
		if d == dt {
			return st
		}
	}
	panic(fmt.Sprintf("no SafeTensors dtype for %s", dt))
}
