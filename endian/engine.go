// Package endian provides byte-order utilities for the minv blob format.
//
// It combines the ByteOrder and AppendByteOrder interfaces from
// encoding/binary into a single EndianEngine interface, so blob encoders can
// both write into fixed headers and append variable-length payload sections
// through one value. Little endian is the minv default; big endian exists for
// interoperability with network-order producers.
//
// All returned engines are the stateless standard-library byte orders and are
// safe for concurrent use.
package endian

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// EndianEngine combines the read/write and append byte-order interfaces from
// encoding/binary. binary.LittleEndian and binary.BigEndian both satisfy it.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine, the minv default.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// CheckEndianness determines the host byte order from a fixed integer value.
func CheckEndianness() binary.ByteOrder {
	var i uint16 = 0x0100

	// For little-endian hosts the LSB (0x00) sits at the lowest address.
	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// IsNativeLittleEndian reports whether the host is little endian.
func IsNativeLittleEndian() bool {
	return CheckEndianness() == binary.LittleEndian
}

// AppendFloat64 appends the IEEE 754 bit pattern of v in the engine's byte
// order.
func AppendFloat64(engine EndianEngine, b []byte, v float64) []byte {
	return engine.AppendUint64(b, math.Float64bits(v))
}

// Float64 decodes an IEEE 754 float64 from the first 8 bytes of b in the
// engine's byte order.
func Float64(engine EndianEngine, b []byte) float64 {
	return math.Float64frombits(engine.Uint64(b))
}
