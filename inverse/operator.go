package inverse

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/neurogo/minv/errs"
	"github.com/neurogo/minv/forward"
	"github.com/neurogo/minv/whiten"
)

// Operator is a built inverse solution: the thin SVD of the whitened,
// prior-weighted leadfield, together with everything needed to assemble a
// solve kernel for any regularization parameter. Build-once, apply-many;
// immutable and safe for concurrent use.
type Operator struct {
	names  []string
	whit   *whiten.Whitener
	fields *mat.Dense // U, channels x r
	sing   []float64  // singular values, descending
	leads  *mat.Dense // V, components x r
	prior  []float64  // source prior diagonal, per component
	src    forward.SourceSpace
	norien int // effective orientation components per location, 1 or 3
	nave   int // averaging convention the operator was built under
	loose  float64
	depth  float64
	fwdRef uint64
}

// Names returns the operator's channel names, in solve order. Sensor data
// must match this ordering exactly on every application.
func (op *Operator) Names() []string {
	return op.names
}

// NChannels returns the sensor dimension.
func (op *Operator) NChannels() int {
	return len(op.names)
}

// NLocations returns the number of source locations.
func (op *Operator) NLocations() int {
	return op.src.NLocations()
}

// NOrient returns the effective orientation components per location: 1 for
// fixed or collapsed loose orientation, 3 otherwise.
func (op *Operator) NOrient() int {
	return op.norien
}

// nComponents returns the solve dimension, locations x orientations.
func (op *Operator) nComponents() int {
	return op.src.NLocations() * op.norien
}

// Src returns the source space.
func (op *Operator) Src() forward.SourceSpace {
	return op.src
}

// Whitener returns the stored whitening transform.
func (op *Operator) Whitener() *whiten.Whitener {
	return op.whit
}

// Sing returns a copy of the singular values, descending.
func (op *Operator) Sing() []float64 {
	return append([]float64(nil), op.sing...)
}

// Fields returns a copy of the sensor-side SVD factor U.
func (op *Operator) Fields() *mat.Dense {
	return mat.DenseCopyOf(op.fields)
}

// Leads returns a copy of the source-side SVD factor V.
func (op *Operator) Leads() *mat.Dense {
	return mat.DenseCopyOf(op.leads)
}

// Prior returns a copy of the source prior diagonal (depth and loose
// weights), one entry per component.
func (op *Operator) Prior() []float64 {
	return append([]float64(nil), op.prior...)
}

// Nave returns the trial-averaging convention the operator was built under.
func (op *Operator) Nave() int {
	return op.nave
}

// Loose returns the orientation looseness the operator was built with.
func (op *Operator) Loose() float64 {
	return op.loose
}

// Depth returns the depth-weighting exponent the operator was built with.
func (op *Operator) Depth() float64 {
	return op.depth
}

// FwdRef returns the 64-bit reference id of the forward model the operator
// was built against.
func (op *Operator) FwdRef() uint64 {
	return op.fwdRef
}

// RestoreConfig carries the deserialized parts of an operator.
type RestoreConfig struct {
	Names    []string
	Whitener *whiten.Whitener
	Fields   *mat.Dense
	Sing     []float64
	Leads    *mat.Dense
	Prior    []float64
	Src      forward.SourceSpace
	NOrient  int
	Nave     int
	Loose    float64
	Depth    float64
	FwdRef   uint64
}

// Restore reassembles an operator from serialized parts, revalidating the
// dimensional invariants Build guarantees.
func Restore(cfg RestoreConfig) (*Operator, error) {
	nchan := len(cfg.Names)
	ncomp := cfg.Src.NLocations() * cfg.NOrient
	r := len(cfg.Sing)

	if cfg.NOrient != 1 && cfg.NOrient != 3 {
		return nil, fmt.Errorf("%w: %d orientation components", errs.ErrInvalidPayload, cfg.NOrient)
	}
	if cfg.Whitener == nil || cfg.Whitener.Dim() != nchan {
		return nil, fmt.Errorf("%w: whitener does not cover %d channels", errs.ErrInvalidPayload, nchan)
	}
	if fr, fc := cfg.Fields.Dims(); fr != nchan || fc != r {
		return nil, fmt.Errorf("%w: fields are %dx%d, want %dx%d", errs.ErrInvalidPayload, fr, fc, nchan, r)
	}
	if lr, lc := cfg.Leads.Dims(); lr != ncomp || lc != r {
		return nil, fmt.Errorf("%w: leads are %dx%d, want %dx%d", errs.ErrInvalidPayload, lr, lc, ncomp, r)
	}
	if len(cfg.Prior) != ncomp {
		return nil, fmt.Errorf("%w: %d prior weights for %d components", errs.ErrInvalidPayload, len(cfg.Prior), ncomp)
	}
	if cfg.Nave < 1 {
		return nil, fmt.Errorf("%w: nave %d", errs.ErrInvalidPayload, cfg.Nave)
	}

	return &Operator{
		names:  cfg.Names,
		whit:   cfg.Whitener,
		fields: cfg.Fields,
		sing:   cfg.Sing,
		leads:  cfg.Leads,
		prior:  cfg.Prior,
		src:    cfg.Src,
		norien: cfg.NOrient,
		nave:   cfg.Nave,
		loose:  cfg.Loose,
		depth:  cfg.Depth,
		fwdRef: cfg.FwdRef,
	}, nil
}
