// Package label defines named regions of interest over source-space vertices
// and the sign-flip vectors that prevent cancellation when signed source
// estimates are averaged within a region.
package label

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/neurogo/minv/errs"
	"github.com/neurogo/minv/forward"
)

// Label is a named subset of source-space vertex identifiers.
type Label struct {
	Name string
	// Vertices are the member vertex ids; estimate restriction preserves
	// this order.
	Vertices []uint32
}

// NVertices returns the number of member vertices.
func (l *Label) NVertices() int {
	return len(l.Vertices)
}

// SignFlip computes the per-vertex polarity corrections for the label from
// the source space's cortical normals: the principal orientation of the
// member normals is taken as the reference direction, and each vertex gets
// +1 or -1 according to the sign of its normal's projection onto it. The
// overall sign is fixed so the majority of flips is positive.
//
// Averaging signed estimates multiplied by these flips avoids the
// cancellation that folded cortex otherwise causes.
func SignFlip(l *Label, src forward.SourceSpace) ([]float64, error) {
	if src.Normals == nil {
		return nil, fmt.Errorf("source space has no normals for sign-flip of label %q", l.Name)
	}

	// Accumulate the 3x3 orientation outer-product sum over member normals.
	outer := mat.NewSymDense(3, nil)
	idx := make([]int, len(l.Vertices))
	for i, v := range l.Vertices {
		loc := src.VertexIndex(v)
		if loc < 0 {
			return nil, fmt.Errorf("%w: label %q vertex %d", errs.ErrUnknownVertex, l.Name, v)
		}
		idx[i] = loc
		for a := 0; a < 3; a++ {
			for b := a; b < 3; b++ {
				outer.SetSym(a, b, outer.At(a, b)+src.Normals.At(loc, a)*src.Normals.At(loc, b))
			}
		}
	}

	var es mat.EigenSym
	if !es.Factorize(outer, true) {
		return nil, fmt.Errorf("orientation decomposition failed for label %q", l.Name)
	}
	var vecs mat.Dense
	es.VectorsTo(&vecs)
	// Eigenvalues ascend, so the principal direction is the last column.
	u := []float64{vecs.At(0, 2), vecs.At(1, 2), vecs.At(2, 2)}

	flips := make([]float64, len(l.Vertices))
	positive := 0
	for i, loc := range idx {
		dot := 0.0
		for a := 0; a < 3; a++ {
			dot += src.Normals.At(loc, a) * u[a]
		}
		if dot >= 0 {
			flips[i] = 1
			positive++
		} else {
			flips[i] = -1
		}
	}
	if positive*2 < len(flips) {
		for i := range flips {
			flips[i] = -flips[i]
		}
	}

	return flips, nil
}
