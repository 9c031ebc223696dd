package blob

import (
	"fmt"

	"github.com/neurogo/minv/compress"
	"github.com/neurogo/minv/format"
	"github.com/neurogo/minv/internal/options"
	"github.com/neurogo/minv/inverse"
	"github.com/neurogo/minv/section"
)

// OperatorEncoder serializes inverse operators. Safe for reuse across
// operators; each Encode call is independent.
type OperatorEncoder struct {
	flag  section.Flag
	codec compress.Codec
}

// OperatorEncoderOption configures NewOperatorEncoder.
type OperatorEncoderOption = options.Option[*OperatorEncoder]

// WithDataCompression selects the payload compression codec. Default none.
func WithDataCompression(typ format.CompressionType) OperatorEncoderOption {
	return options.New(func(e *OperatorEncoder) error {
		return e.flag.SetCompression(typ)
	})
}

// WithLittleEndian selects little-endian payload encoding, the default.
func WithLittleEndian() OperatorEncoderOption {
	return options.NoError(func(e *OperatorEncoder) {})
}

// WithBigEndian selects big-endian payload encoding.
func WithBigEndian() OperatorEncoderOption {
	return options.NoError(func(e *OperatorEncoder) {
		e.flag.SetBigEndian()
	})
}

// NewOperatorEncoder creates an operator encoder.
func NewOperatorEncoder(opts ...OperatorEncoderOption) (*OperatorEncoder, error) {
	enc := &OperatorEncoder{flag: section.NewFlag(section.MagicOperator)}
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

// Encode serializes an operator into a sealed blob.
func (e *OperatorEncoder) Encode(op *inverse.Operator) ([]byte, error) {
	src := op.Src()
	sing := op.Sing()
	wh := op.Whitener()

	header := section.OperatorHeader{
		NChannels: uint32(op.NChannels()),
		NSources:  uint32(op.NLocations()),
		NOrient:   uint16(op.NOrient()),
		Rank:      uint16(wh.Rank()),
		NSing:     uint32(len(sing)),
		Nave:      uint32(op.Nave()),
		Loose:     op.Loose(),
		Depth:     op.Depth(),
		FwdRef:    op.FwdRef(),
		Flag:      e.flag,
	}

	w := newPayloadWriter(e.flag.GetEndianEngine())
	defer w.release()

	for _, name := range op.Names() {
		w.appendString(name)
	}
	w.appendMatrix(wh.Matrix())
	w.appendMatrix(wh.ColoringMatrix())
	w.appendFloats(op.Prior())
	w.appendFloats(sing)
	w.appendMatrix(op.Fields())
	w.appendMatrix(op.Leads())
	w.appendUint32s(src.Vertices)
	if src.Normals != nil {
		w.appendByte(1)
		w.appendMatrix(src.Normals)
	} else {
		w.appendByte(0)
	}

	compressed, err := e.codec.Compress(w.bytes())
	if err != nil {
		return nil, fmt.Errorf("operator payload compression failed: %w", err)
	}

	out := make([]byte, 0, section.OperatorHeaderSize+len(compressed)+section.ChecksumSize)
	out = append(out, header.Bytes()...)
	out = append(out, compressed...)

	return seal(out), nil
}
