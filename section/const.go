// Package section defines the fixed-size binary headers of the minv blob
// format.
//
// Every blob opens with a 4-byte flag word (magic, endianness, compression,
// version) followed by type-specific counts and build metadata, so a reader
// can size and validate the payload before touching it. Headers round-trip
// through Parse and Bytes; multi-byte fields honor the endianness recorded in
// the flag, while the flag word itself is always little endian.
package section

// Fixed header sizes in bytes.
const (
	// OperatorHeaderSize is the size of a serialized operator header.
	OperatorHeaderSize = 48
	// EstimateHeaderSize is the size of a serialized source-estimate
	// header.
	EstimateHeaderSize = 40
	// ChecksumSize is the size of the trailing xxHash64 integrity
	// checksum every blob ends with.
	ChecksumSize = 8
)

// FormatVersion is the current blob format version.
const FormatVersion = 1

// Magic bytes distinguishing the two blob types.
const (
	MagicOperator uint8 = 0xA9
	MagicEstimate uint8 = 0xA5
)
