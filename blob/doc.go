// Package blob implements the stable binary serialization of inverse
// operators and source estimates.
//
// A blob is a fixed-size header (see the section package), a payload
// (optionally compressed as a whole), and a trailing 8-byte xxHash64
// checksum over everything before it. The checksum trailer is always little
// endian; payload fields follow the byte order recorded in the header flag.
//
// # Operator payload layout
//
// In order, using the header's counts:
//
//  1. channel names: NChannels x (uint16 length + bytes)
//  2. whitening transform: NChannels^2 float64, row major
//  3. coloring transform: NChannels^2 float64, row major
//  4. source prior diagonal: NSources*NOrient float64
//  5. singular values: NSing float64, descending
//  6. sensor-side SVD factor U: NChannels x NSing float64
//  7. source-side SVD factor V: NSources*NOrient x NSing float64
//  8. vertex ids: NSources uint32
//  9. normals marker byte, then NSources x 3 float64 when present
//
// # Estimate payload layout
//
//  1. vertex ids: NVertices uint32
//  2. data: NVertices*NOrient x NTimes float64, row major
//
// Decoding validates magic, version, compression type and checksum before
// touching the payload, and every section read is bounds-checked; corrupted
// input fails with a sentinel from the errs package, never a panic.
//
// # Usage
//
//	enc, _ := blob.NewOperatorEncoder(blob.WithDataCompression(format.CompressionZstd))
//	data, err := enc.Encode(op)
//	...
//	op2, err := blob.DecodeOperator(data)
package blob
