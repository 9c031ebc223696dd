package section

import (
	"github.com/neurogo/minv/endian"
	"github.com/neurogo/minv/errs"
)

// EstimateHeader is the fixed-size header of a serialized source estimate.
type EstimateHeader struct {
	// NVertices is the source-vertex count. byte offset 4-7
	NVertices uint32
	// NTimes is the time-sample count. byte offset 8-11
	NTimes uint32
	// NOrient is the rows per vertex, 1 or 3. byte offset 12-13
	NOrient uint16
	// Method is the format.Method the estimate was computed under.
	// byte offset 14
	Method uint8
	// Pick is the format.PickOri applied. byte offset 15
	Pick uint8
	// TMin is the time of the first sample in seconds. byte offset 16-23
	TMin float64
	// TStep is the sampling interval in seconds. byte offset 24-31
	TStep float64

	// Flag is the shared flag word. byte offset 0-3; bytes 32-39 are
	// reserved and zero.
	Flag Flag
}

// NewEstimateHeader creates a header with the estimate magic and defaults.
func NewEstimateHeader() *EstimateHeader {
	return &EstimateHeader{Flag: NewFlag(MagicEstimate)}
}

// Bytes serializes the header into EstimateHeaderSize bytes.
func (h *EstimateHeader) Bytes() []byte {
	b := make([]byte, 0, EstimateHeaderSize)
	engine := h.Flag.GetEndianEngine()

	b = h.Flag.appendTo(b)
	b = engine.AppendUint32(b, h.NVertices)
	b = engine.AppendUint32(b, h.NTimes)
	b = engine.AppendUint16(b, h.NOrient)
	b = append(b, h.Method, h.Pick)
	b = endian.AppendFloat64(engine, b, h.TMin)
	b = endian.AppendFloat64(engine, b, h.TStep)
	b = append(b, make([]byte, 8)...) // reserved

	return b
}

// Parse reads a header from exactly EstimateHeaderSize bytes and validates
// its flag.
func (h *EstimateHeader) Parse(data []byte) error {
	if len(data) != EstimateHeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	h.Flag = parseFlag(data)
	if err := h.Flag.Validate(MagicEstimate); err != nil {
		return err
	}

	engine := h.Flag.GetEndianEngine()
	h.NVertices = engine.Uint32(data[4:8])
	h.NTimes = engine.Uint32(data[8:12])
	h.NOrient = engine.Uint16(data[12:14])
	h.Method = data[14]
	h.Pick = data[15]
	h.TMin = endian.Float64(engine, data[16:24])
	h.TStep = endian.Float64(engine, data[24:32])

	return nil
}

// ParseEstimateHeader parses a header from the start of a blob.
func ParseEstimateHeader(data []byte) (EstimateHeader, error) {
	if len(data) < EstimateHeaderSize {
		return EstimateHeader{}, errs.ErrInvalidHeaderSize
	}
	var h EstimateHeader
	if err := h.Parse(data[:EstimateHeaderSize]); err != nil {
		return EstimateHeader{}, err
	}

	return h, nil
}
