package blob

import (
	"fmt"

	"github.com/neurogo/minv/compress"
	"github.com/neurogo/minv/format"
	"github.com/neurogo/minv/internal/options"
	"github.com/neurogo/minv/inverse"
	"github.com/neurogo/minv/section"
)

// EstimateEncoder serializes source estimates.
type EstimateEncoder struct {
	flag  section.Flag
	codec compress.Codec
}

// EstimateEncoderOption configures NewEstimateEncoder.
type EstimateEncoderOption = options.Option[*EstimateEncoder]

// WithEstimateCompression selects the payload compression codec. Default
// none.
func WithEstimateCompression(typ format.CompressionType) EstimateEncoderOption {
	return options.New(func(e *EstimateEncoder) error {
		return e.flag.SetCompression(typ)
	})
}

// WithEstimateBigEndian selects big-endian payload encoding.
func WithEstimateBigEndian() EstimateEncoderOption {
	return options.NoError(func(e *EstimateEncoder) {
		e.flag.SetBigEndian()
	})
}

// NewEstimateEncoder creates a source-estimate encoder.
func NewEstimateEncoder(opts ...EstimateEncoderOption) (*EstimateEncoder, error) {
	enc := &EstimateEncoder{flag: section.NewFlag(section.MagicEstimate)}
	if err := options.Apply(enc, opts...); err != nil {
		return nil, err
	}

	codec, err := compress.CreateCodec(enc.flag.Compression())
	if err != nil {
		return nil, err
	}
	enc.codec = codec

	return enc, nil
}

// Encode serializes a source estimate into a sealed blob.
func (e *EstimateEncoder) Encode(stc *inverse.SourceEstimate) ([]byte, error) {
	header := section.EstimateHeader{
		NVertices: uint32(stc.NVertices()),
		NTimes:    uint32(stc.NTimes()),
		NOrient:   uint16(stc.NOrient),
		Method:    uint8(stc.Method),
		Pick:      uint8(stc.Pick),
		TMin:      stc.TMin,
		TStep:     stc.TStep,
		Flag:      e.flag,
	}

	w := newPayloadWriter(e.flag.GetEndianEngine())
	defer w.release()

	w.appendUint32s(stc.Vertices)
	w.appendMatrix(stc.Data)

	compressed, err := e.codec.Compress(w.bytes())
	if err != nil {
		return nil, fmt.Errorf("estimate payload compression failed: %w", err)
	}

	out := make([]byte, 0, section.EstimateHeaderSize+len(compressed)+section.ChecksumSize)
	out = append(out, header.Bytes()...)
	out = append(out, compressed...)

	return seal(out), nil
}
