package section

import (
	"fmt"

	"github.com/neurogo/minv/endian"
	"github.com/neurogo/minv/errs"
	"github.com/neurogo/minv/format"
)

// flagBigEndian marks payloads whose multi-byte fields are big endian.
const flagBigEndian uint16 = 0x0001

// Flag is the 4-byte word every blob starts with: a 16-bit options field
// (magic in the high byte, endianness bit in the low byte), the payload
// compression type and the format version. The options field itself is
// always encoded little endian so it can be read before the endianness is
// known.
type Flag struct {
	Options         uint16
	CompressionType uint8
	Version         uint8
}

// NewFlag creates a flag for the given blob magic with the defaults:
// little endian, no compression, current version.
func NewFlag(magic uint8) Flag {
	return Flag{
		Options:         uint16(magic) << 8,
		CompressionType: uint8(format.CompressionNone),
		Version:         FormatVersion,
	}
}

// Magic returns the blob-type magic byte.
func (f Flag) Magic() uint8 {
	return uint8(f.Options >> 8)
}

// SetBigEndian switches the payload byte order to big endian.
func (f *Flag) SetBigEndian() {
	f.Options |= flagBigEndian
}

// SetCompression records the payload compression type.
func (f *Flag) SetCompression(typ format.CompressionType) error {
	if !typ.Valid() {
		return fmt.Errorf("%w: %d", errs.ErrInvalidCompression, typ)
	}
	f.CompressionType = uint8(typ)

	return nil
}

// Compression returns the payload compression type.
func (f Flag) Compression() format.CompressionType {
	return format.CompressionType(f.CompressionType)
}

// GetEndianEngine returns the engine for the payload byte order.
func (f Flag) GetEndianEngine() endian.EndianEngine {
	if f.Options&flagBigEndian != 0 {
		return endian.GetBigEndianEngine()
	}

	return endian.GetLittleEndianEngine()
}

// Validate checks the flag against the expected blob magic.
func (f Flag) Validate(magic uint8) error {
	if f.Magic() != magic {
		return fmt.Errorf("%w: 0x%02X, want 0x%02X", errs.ErrInvalidMagic, f.Magic(), magic)
	}
	if f.Version == 0 || f.Version > FormatVersion {
		return fmt.Errorf("%w: version %d", errs.ErrUnsupportedVersion, f.Version)
	}
	if !f.Compression().Valid() {
		return fmt.Errorf("%w: %d", errs.ErrInvalidCompression, f.CompressionType)
	}

	return nil
}

// appendTo serializes the flag into the first 4 bytes of a header.
func (f Flag) appendTo(b []byte) []byte {
	b = append(b, byte(f.Options), byte(f.Options>>8))
	b = append(b, f.CompressionType, f.Version)

	return b
}

// parseFlag reads a flag from the first 4 bytes of a header.
func parseFlag(data []byte) Flag {
	return Flag{
		Options:         uint16(data[0]) | uint16(data[1])<<8,
		CompressionType: data[2],
		Version:         data[3],
	}
}
