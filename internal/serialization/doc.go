// Package serialization reads and writes the tensor containers warmstart
// understands: the native .born format and SafeTensors.
//
// The .born format:
//
//	v1:
//	  [4 bytes: Magic "BORN"]
//	  [4 bytes: Version (uint32 LE)]
//	  [4 bytes: Flags (uint32 LE)]
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON metadata]
//	  [Tensor data: raw bytes, 64-byte aligned]
//
//	v2 (default for writing):
//	  [64-byte fixed header: magic, version, flags, header size,
//	   data size, SHA-256 of the data section]
//	  [Header: JSON metadata]
//	  [Tensor data: raw bytes, 64-byte aligned]
//
// Readers validate names, counts and offsets before touching tensor data, and
// v2 readers verify the checksum unless told otherwise.
//
// Example:
//
//	file, err := serialization.ReadFile("pretrained.born", serialization.ReadOptions{Device: tensor.CPU})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for name, raw := range file.Tensors {
//	    fmt.Println(name, raw.Shape())
//	}
package serialization
