package blob

import (
	"fmt"

	"github.com/neurogo/minv/compress"
	"github.com/neurogo/minv/errs"
	"github.com/neurogo/minv/format"
	"github.com/neurogo/minv/inverse"
	"github.com/neurogo/minv/section"
)

// DecodeEstimate reassembles a source estimate from a sealed blob.
func DecodeEstimate(data []byte) (*inverse.SourceEstimate, error) {
	body, err := verify(data, section.EstimateHeaderSize)
	if err != nil {
		return nil, err
	}

	header, err := section.ParseEstimateHeader(body)
	if err != nil {
		return nil, err
	}
	if header.NOrient != 1 && header.NOrient != 3 {
		return nil, fmt.Errorf("%w: %d orientation components", errs.ErrInvalidPayload, header.NOrient)
	}

	codec, err := compress.CreateCodec(header.Flag.Compression())
	if err != nil {
		return nil, err
	}
	payload, err := codec.Decompress(body[section.EstimateHeaderSize:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidPayload, err)
	}

	nverts := int(header.NVertices)
	norien := int(header.NOrient)
	ntimes := int(header.NTimes)

	r := newPayloadReader(header.Flag.GetEndianEngine(), payload)
	vertices, err := r.readUint32s(nverts)
	if err != nil {
		return nil, err
	}
	matrix, err := r.readMatrix(nverts*norien, ntimes)
	if err != nil {
		return nil, err
	}
	if r.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing payload bytes", errs.ErrInvalidPayload, r.remaining())
	}

	return &inverse.SourceEstimate{
		Vertices: vertices,
		Data:     matrix,
		TMin:     header.TMin,
		TStep:    header.TStep,
		Method:   format.Method(header.Method),
		Pick:     format.PickOri(header.Pick),
		NOrient:  norien,
	}, nil
}
