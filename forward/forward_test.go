package forward

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/neurogo/minv/errs"
)

func TestNew(t *testing.T) {
	names := []string{"a", "b", "c"}
	src := SourceSpace{Vertices: []uint32{10, 20}}

	t.Run("Fixed orientation", func(t *testing.T) {
		m, err := New(names, mat.NewDense(3, 2, nil), src, Fixed)
		require.NoError(t, err)
		require.Equal(t, 2, m.NLocations())
		require.Equal(t, Fixed, m.NOrient())
	})

	t.Run("Free orientation", func(t *testing.T) {
		m, err := New(names, mat.NewDense(3, 6, nil), src, Free)
		require.NoError(t, err)
		require.Equal(t, Free, m.NOrient())
	})

	t.Run("Bad orientation count", func(t *testing.T) {
		_, err := New(names, mat.NewDense(3, 4, nil), src, 2)
		require.Error(t, err)
	})

	t.Run("Row mismatch", func(t *testing.T) {
		_, err := New(names, mat.NewDense(4, 2, nil), src, Fixed)
		require.ErrorIs(t, err, errs.ErrDimensionMismatch)
	})

	t.Run("Column mismatch", func(t *testing.T) {
		_, err := New(names, mat.NewDense(3, 5, nil), src, Free)
		require.ErrorIs(t, err, errs.ErrDimensionMismatch)
	})

	t.Run("Bad normals shape", func(t *testing.T) {
		bad := SourceSpace{Vertices: []uint32{10, 20}, Normals: mat.NewDense(3, 3, nil)}
		_, err := New(names, mat.NewDense(3, 2, nil), bad, Fixed)
		require.ErrorIs(t, err, errs.ErrDimensionMismatch)
	})
}

func TestSourceSpace_VertexIndex(t *testing.T) {
	src := SourceSpace{Vertices: []uint32{5, 9, 300}}
	require.Equal(t, 1, src.VertexIndex(9))
	require.Equal(t, -1, src.VertexIndex(4))
}

func TestModel_PickChannels(t *testing.T) {
	names := []string{"a", "b", "c"}
	gain := mat.NewDense(3, 2, []float64{
		1, 2,
		3, 4,
		5, 6,
	})
	m, err := New(names, gain, SourceSpace{Vertices: []uint32{10, 20}}, Fixed)
	require.NoError(t, err)

	t.Run("Reordered subset", func(t *testing.T) {
		sub, err := m.PickChannels([]string{"c", "a"})
		require.NoError(t, err)
		require.Equal(t, []string{"c", "a"}, sub.Names())
		require.True(t, mat.Equal(mat.NewDense(2, 2, []float64{5, 6, 1, 2}), sub.Gain()))
	})

	t.Run("Unknown channel", func(t *testing.T) {
		_, err := m.PickChannels([]string{"a", "z"})
		require.ErrorIs(t, err, errs.ErrIncompatibleForward)
	})
}
