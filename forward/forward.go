// Package forward defines the forward (leadfield) model consumed by the
// inverse operator builder.
//
// A forward model maps unit dipoles at source-space locations to predicted
// sensor measurements. It is computed externally (boundary-element or sphere
// head modeling is out of scope) and loaded here as an immutable value: the
// builder references the gain matrix, it never copies or mutates it.
package forward

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/neurogo/minv/errs"
)

// Orientation constants for the per-location component count.
const (
	// Fixed provides one component per location, oriented along the
	// cortical normal.
	Fixed = 1
	// Free provides three components per location. Column order within
	// each location triple is tangential, tangential, normal; the
	// normal component is always last.
	Free = 3
)

// SourceSpace identifies the source locations of a forward model.
type SourceSpace struct {
	// Vertices are the source-space vertex identifiers, one per location,
	// in gain-column order.
	Vertices []uint32
	// Normals holds the cortical normal unit vectors, locations x 3.
	// It may be nil for volume source spaces, which forfeits
	// normal-component picks and sign-flip computation.
	Normals *mat.Dense
}

// NLocations returns the number of source locations.
func (s SourceSpace) NLocations() int {
	return len(s.Vertices)
}

// VertexIndex returns the location index of a vertex id, or -1.
func (s SourceSpace) VertexIndex(v uint32) int {
	for i, sv := range s.Vertices {
		if sv == v {
			return i
		}
	}

	return -1
}

// Model is an immutable forward model: the leadfield gain matrix with its
// channel ordering and source space.
type Model struct {
	names  []string
	gain   *mat.Dense
	src    SourceSpace
	norien int
}

// New validates and wraps a leadfield. gain is channels x
// (locations*orientations); norien is Fixed or Free.
func New(names []string, gain *mat.Dense, src SourceSpace, norien int) (*Model, error) {
	if norien != Fixed && norien != Free {
		return nil, fmt.Errorf("orientation count must be %d or %d, got %d", Fixed, Free, norien)
	}
	r, c := gain.Dims()
	if r != len(names) {
		return nil, fmt.Errorf("%w: gain has %d rows for %d channels",
			errs.ErrDimensionMismatch, r, len(names))
	}
	if c != src.NLocations()*norien {
		return nil, fmt.Errorf("%w: gain has %d columns for %d locations x %d orientations",
			errs.ErrDimensionMismatch, c, src.NLocations(), norien)
	}
	if src.Normals != nil {
		nr, nc := src.Normals.Dims()
		if nr != src.NLocations() || nc != 3 {
			return nil, fmt.Errorf("%w: normals are %dx%d for %d locations",
				errs.ErrDimensionMismatch, nr, nc, src.NLocations())
		}
	}

	return &Model{names: names, gain: gain, src: src, norien: norien}, nil
}

// Names returns the channel names in gain-row order.
func (m *Model) Names() []string {
	return m.names
}

// Gain returns the leadfield matrix by reference; callers must not modify it.
func (m *Model) Gain() *mat.Dense {
	return m.gain
}

// Src returns the source space.
func (m *Model) Src() SourceSpace {
	return m.src
}

// NOrient returns the orientation components per location, Fixed or Free.
func (m *Model) NOrient() int {
	return m.norien
}

// NLocations returns the number of source locations.
func (m *Model) NLocations() int {
	return m.src.NLocations()
}

// PickChannels returns a model restricted to the named channels, in the given
// order. The gain rows are copied; the source space is shared.
func (m *Model) PickChannels(names []string) (*Model, error) {
	_, c := m.gain.Dims()
	sub := mat.NewDense(len(names), c, nil)
	for i, name := range names {
		row := -1
		for j, n := range m.names {
			if n == name {
				row = j
				break
			}
		}
		if row < 0 {
			return nil, fmt.Errorf("%w: channel %q not in forward model",
				errs.ErrIncompatibleForward, name)
		}
		sub.SetRow(i, mat.Row(nil, row, m.gain))
	}

	return &Model{names: names, gain: sub, src: m.src, norien: m.norien}, nil
}
