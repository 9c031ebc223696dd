package blob

import (
	"fmt"

	"github.com/neurogo/minv/compress"
	"github.com/neurogo/minv/errs"
	"github.com/neurogo/minv/forward"
	"github.com/neurogo/minv/inverse"
	"github.com/neurogo/minv/section"
	"github.com/neurogo/minv/whiten"
)

// DecodeOperator reassembles an inverse operator from a sealed blob,
// validating magic, version, checksum and every dimensional invariant before
// returning it.
func DecodeOperator(data []byte) (*inverse.Operator, error) {
	body, err := verify(data, section.OperatorHeaderSize)
	if err != nil {
		return nil, err
	}

	header, err := section.ParseOperatorHeader(body)
	if err != nil {
		return nil, err
	}

	codec, err := compress.CreateCodec(header.Flag.Compression())
	if err != nil {
		return nil, err
	}
	payload, err := codec.Decompress(body[section.OperatorHeaderSize:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidPayload, err)
	}

	nchan := int(header.NChannels)
	nsrc := int(header.NSources)
	norien := int(header.NOrient)
	nsing := int(header.NSing)
	ncomp := nsrc * norien

	r := newPayloadReader(header.Flag.GetEndianEngine(), payload)

	names := make([]string, nchan)
	for i := range names {
		if names[i], err = r.readString(); err != nil {
			return nil, err
		}
	}

	wmat, err := r.readMatrix(nchan, nchan)
	if err != nil {
		return nil, err
	}
	winv, err := r.readMatrix(nchan, nchan)
	if err != nil {
		return nil, err
	}
	prior, err := r.readFloats(ncomp)
	if err != nil {
		return nil, err
	}
	sing, err := r.readFloats(nsing)
	if err != nil {
		return nil, err
	}
	fields, err := r.readMatrix(nchan, nsing)
	if err != nil {
		return nil, err
	}
	leads, err := r.readMatrix(ncomp, nsing)
	if err != nil {
		return nil, err
	}
	vertices, err := r.readUint32s(nsrc)
	if err != nil {
		return nil, err
	}

	src := forward.SourceSpace{Vertices: vertices}
	marker, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if marker == 1 {
		if src.Normals, err = r.readMatrix(nsrc, 3); err != nil {
			return nil, err
		}
	}

	if r.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing payload bytes", errs.ErrInvalidPayload, r.remaining())
	}

	wh, err := whiten.Restore(names, wmat, winv, int(header.Rank))
	if err != nil {
		return nil, err
	}

	return inverse.Restore(inverse.RestoreConfig{
		Names:    names,
		Whitener: wh,
		Fields:   fields,
		Sing:     sing,
		Leads:    leads,
		Prior:    prior,
		Src:      src,
		NOrient:  norien,
		Nave:     int(header.Nave),
		Loose:    header.Loose,
		Depth:    header.Depth,
		FwdRef:   header.FwdRef,
	})
}
