package section

import (
	"github.com/neurogo/minv/endian"
	"github.com/neurogo/minv/errs"
)

// OperatorHeader is the fixed-size header of a serialized inverse operator.
type OperatorHeader struct {
	// NChannels is the sensor dimension. byte offset 4-7
	NChannels uint32
	// NSources is the source-location count. byte offset 8-11
	NSources uint32
	// NOrient is the orientation components per location, 1 or 3.
	// byte offset 12-13
	NOrient uint16
	// Rank is the whitener's retained rank. byte offset 14-15
	Rank uint16
	// NSing is the number of stored singular components. byte offset 16-19
	NSing uint32
	// Nave is the averaging convention the operator was built under.
	// byte offset 20-23
	Nave uint32
	// Loose is the orientation-looseness prior. byte offset 24-31
	Loose float64
	// Depth is the depth-weighting exponent. byte offset 32-39
	Depth float64
	// FwdRef is the forward-model reference id. byte offset 40-47
	FwdRef uint64

	// Flag is the shared flag word. byte offset 0-3
	Flag Flag
}

// NewOperatorHeader creates a header with the operator magic and defaults.
func NewOperatorHeader() *OperatorHeader {
	return &OperatorHeader{Flag: NewFlag(MagicOperator)}
}

// Bytes serializes the header into OperatorHeaderSize bytes.
func (h *OperatorHeader) Bytes() []byte {
	b := make([]byte, 0, OperatorHeaderSize)
	engine := h.Flag.GetEndianEngine()

	b = h.Flag.appendTo(b)
	b = engine.AppendUint32(b, h.NChannels)
	b = engine.AppendUint32(b, h.NSources)
	b = engine.AppendUint16(b, h.NOrient)
	b = engine.AppendUint16(b, h.Rank)
	b = engine.AppendUint32(b, h.NSing)
	b = engine.AppendUint32(b, h.Nave)
	b = endian.AppendFloat64(engine, b, h.Loose)
	b = endian.AppendFloat64(engine, b, h.Depth)
	b = engine.AppendUint64(b, h.FwdRef)

	return b
}

// Parse reads a header from exactly OperatorHeaderSize bytes and validates
// its flag.
func (h *OperatorHeader) Parse(data []byte) error {
	if len(data) != OperatorHeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	h.Flag = parseFlag(data)
	if err := h.Flag.Validate(MagicOperator); err != nil {
		return err
	}

	engine := h.Flag.GetEndianEngine()
	h.NChannels = engine.Uint32(data[4:8])
	h.NSources = engine.Uint32(data[8:12])
	h.NOrient = engine.Uint16(data[12:14])
	h.Rank = engine.Uint16(data[14:16])
	h.NSing = engine.Uint32(data[16:20])
	h.Nave = engine.Uint32(data[20:24])
	h.Loose = endian.Float64(engine, data[24:32])
	h.Depth = endian.Float64(engine, data[32:40])
	h.FwdRef = engine.Uint64(data[40:48])

	return nil
}

// ParseOperatorHeader parses a header from the start of a blob.
func ParseOperatorHeader(data []byte) (OperatorHeader, error) {
	if len(data) < OperatorHeaderSize {
		return OperatorHeader{}, errs.ErrInvalidHeaderSize
	}
	var h OperatorHeader
	if err := h.Parse(data[:OperatorHeaderSize]); err != nil {
		return OperatorHeader{}, err
	}

	return h, nil
}
