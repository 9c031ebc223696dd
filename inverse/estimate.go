package inverse

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/neurogo/minv/errs"
	"github.com/neurogo/minv/format"
	"github.com/neurogo/minv/label"
)

// SourceEstimate is a source-space activation time course: one row per
// vertex (or per vertex and orientation component for vector estimates) and
// one column per time sample.
type SourceEstimate struct {
	// Vertices are the source-space vertex ids, in row-block order.
	Vertices []uint32
	// Data is (vertices * NOrient) x samples.
	Data *mat.Dense
	// TMin is the time of the first sample in seconds.
	TMin float64
	// TStep is the sampling interval in seconds.
	TStep float64
	// Method records the weighting the estimate was computed under.
	Method format.Method
	// Pick records the orientation pooling applied.
	Pick format.PickOri
	// NOrient is the number of rows per vertex, 1 or 3.
	NOrient int
}

// NVertices returns the number of source vertices.
func (s *SourceEstimate) NVertices() int {
	return len(s.Vertices)
}

// NTimes returns the number of time samples.
func (s *SourceEstimate) NTimes() int {
	_, c := s.Data.Dims()
	return c
}

// Time returns the time of sample i in seconds.
func (s *SourceEstimate) Time(i int) float64 {
	return s.TMin + float64(i)*s.TStep
}

// VertexRow returns the first data row of the given vertex id, or an error
// when the vertex is not part of the estimate.
func (s *SourceEstimate) VertexRow(v uint32) (int, error) {
	for i, sv := range s.Vertices {
		if sv == v {
			return i * s.NOrient, nil
		}
	}

	return 0, fmt.Errorf("%w: vertex %d", errs.ErrUnknownVertex, v)
}

// LabelMean averages the estimate across a label's vertices, returning one
// value per time sample. flips, when non-nil, must hold one polarity per
// label vertex (see label.SignFlip) and is applied before averaging; passing
// nil averages the raw signed values, a legitimate but generally
// smaller-magnitude quantity.
//
// Only scalar estimates (NOrient == 1) can be averaged.
func (s *SourceEstimate) LabelMean(l *label.Label, flips []float64) ([]float64, error) {
	if s.NOrient != 1 {
		return nil, fmt.Errorf("%w: label mean requires scalar estimates, have %d components per vertex",
			errs.ErrInvalidMethod, s.NOrient)
	}
	if flips != nil && len(flips) != l.NVertices() {
		return nil, fmt.Errorf("%w: %d flips for %d label vertices",
			errs.ErrDimensionMismatch, len(flips), l.NVertices())
	}

	nt := s.NTimes()
	out := make([]float64, nt)
	for i, v := range l.Vertices {
		row, err := s.VertexRow(v)
		if err != nil {
			return nil, err
		}
		f := 1.0
		if flips != nil {
			f = flips[i]
		}
		for t := 0; t < nt; t++ {
			out[t] += f * s.Data.At(row, t)
		}
	}
	for t := range out {
		out[t] /= float64(l.NVertices())
	}

	return out, nil
}

// InLabel restricts the estimate to a label's vertices, in label order.
// The returned row count equals the label's vertex count times NOrient.
func (s *SourceEstimate) InLabel(l *label.Label) (*SourceEstimate, error) {
	nt := s.NTimes()
	out := mat.NewDense(l.NVertices()*s.NOrient, nt, nil)
	for i, v := range l.Vertices {
		row, err := s.VertexRow(v)
		if err != nil {
			return nil, err
		}
		for c := 0; c < s.NOrient; c++ {
			for t := 0; t < nt; t++ {
				out.Set(i*s.NOrient+c, t, s.Data.At(row+c, t))
			}
		}
	}

	return &SourceEstimate{
		Vertices: append([]uint32(nil), l.Vertices...),
		Data:     out,
		TMin:     s.TMin,
		TStep:    s.TStep,
		Method:   s.Method,
		Pick:     s.Pick,
		NOrient:  s.NOrient,
	}, nil
}
