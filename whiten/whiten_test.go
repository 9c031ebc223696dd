package whiten

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/neurogo/minv/cov"
	"github.com/neurogo/minv/errs"
)

func names(p int) []string {
	out := make([]string, p)
	for i := range out {
		out[i] = "CH" + string(rune('0'+i))
	}

	return out
}

// spdCovariance builds a well-conditioned SPD matrix B B^T + I.
func spdCovariance(rng *rand.Rand, p int) *mat.SymDense {
	b := mat.NewDense(p, p, nil)
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			b.Set(i, j, rng.NormFloat64())
		}
	}
	var bbt mat.Dense
	bbt.Mul(b, b.T())

	s := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := bbt.At(i, j)
			if i == j {
				v++
			}
			s.SetSym(i, j, v)
		}
	}

	return s
}

func TestBuild_FullRank(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	p := 6
	nc, err := cov.New(names(p), spdCovariance(rng, p))
	require.NoError(t, err)
	require.Equal(t, p, nc.Rank())

	wh, err := Build(nc)
	require.NoError(t, err)
	require.Equal(t, p, wh.Rank())
	require.Equal(t, p, wh.Dim())

	t.Run("Whitened covariance is identity", func(t *testing.T) {
		var wc, wcwt mat.Dense
		wc.Mul(wh.Matrix(), nc.Matrix())
		wcwt.Mul(&wc, wh.Matrix().T())

		eye := mat.NewDense(p, p, nil)
		for i := 0; i < p; i++ {
			eye.Set(i, i, 1)
		}
		require.True(t, mat.EqualApprox(eye, &wcwt, 1e-9))
	})

	t.Run("Color inverts Apply", func(t *testing.T) {
		data := mat.NewDense(p, 11, nil)
		for i := 0; i < p; i++ {
			for j := 0; j < 11; j++ {
				data.Set(i, j, rng.NormFloat64())
			}
		}

		white, err := wh.Apply(data)
		require.NoError(t, err)
		back, err := wh.Color(white)
		require.NoError(t, err)

		require.True(t, mat.EqualApprox(data, back, 1e-9))
	})
}

func TestBuild_RankDeficient(t *testing.T) {
	// A rank-2 covariance over 4 channels: v1 v1^T + v2 v2^T.
	p := 4
	v1 := []float64{1, 1, 0, 0}
	v2 := []float64{0, 0, 2, 1}
	s := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			s.SetSym(i, j, v1[i]*v1[j]+v2[i]*v2[j])
		}
	}

	nc, err := cov.New(names(p), s)
	require.NoError(t, err)
	require.Equal(t, 2, nc.Rank())

	wh, err := Build(nc)
	require.NoError(t, err)
	require.Equal(t, 2, wh.Rank())

	t.Run("Round trip on the retained subspace", func(t *testing.T) {
		// Data living in the span of v1 and v2 survives exactly.
		data := mat.NewDense(p, 2, nil)
		for i := 0; i < p; i++ {
			data.Set(i, 0, 3*v1[i]-v2[i])
			data.Set(i, 1, 0.5*v2[i])
		}

		white, err := wh.Apply(data)
		require.NoError(t, err)
		back, err := wh.Color(white)
		require.NoError(t, err)
		require.True(t, mat.EqualApprox(data, back, 1e-9))
	})

	t.Run("Nullspace components are discarded", func(t *testing.T) {
		// (1, -1, 0, 0) is orthogonal to both generators.
		data := mat.NewDense(p, 1, []float64{1, -1, 0, 0})

		white, err := wh.Apply(data)
		require.NoError(t, err)
		require.True(t, mat.EqualApprox(mat.NewDense(p, 1, nil), white, 1e-9))
	})
}

func TestBuild_Singular(t *testing.T) {
	nc, err := cov.New(names(3), mat.NewSymDense(3, nil))
	require.NoError(t, err)
	require.Equal(t, 0, nc.Rank())

	_, err = Build(nc)
	require.ErrorIs(t, err, errs.ErrSingularCovariance)
}

func TestBuild_WithRank(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	p := 5
	nc, err := cov.New(names(p), spdCovariance(rng, p))
	require.NoError(t, err)

	t.Run("Explicit rank trims components", func(t *testing.T) {
		wh, err := Build(nc, WithRank(3))
		require.NoError(t, err)
		require.Equal(t, 3, wh.Rank())
	})

	t.Run("Larger than numerical rank is capped", func(t *testing.T) {
		wh, err := Build(nc, WithRank(99))
		require.NoError(t, err)
		require.Equal(t, p, wh.Rank())
	})

	t.Run("Negative rank rejected", func(t *testing.T) {
		_, err := Build(nc, WithRank(-1))
		require.Error(t, err)
	})
}

func TestWhitener_Restore(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	p := 4
	nc, err := cov.New(names(p), spdCovariance(rng, p))
	require.NoError(t, err)
	wh, err := Build(nc)
	require.NoError(t, err)

	t.Run("Round trip", func(t *testing.T) {
		restored, err := Restore(wh.Names(), wh.Matrix(), wh.ColoringMatrix(), wh.Rank())
		require.NoError(t, err)
		require.Equal(t, wh.Rank(), restored.Rank())
		require.True(t, mat.Equal(wh.Matrix(), restored.Matrix()))
	})

	t.Run("Dimension mismatch", func(t *testing.T) {
		_, err := Restore(names(3), wh.Matrix(), wh.ColoringMatrix(), wh.Rank())
		require.ErrorIs(t, err, errs.ErrDimensionMismatch)
	})

	t.Run("Invalid rank", func(t *testing.T) {
		_, err := Restore(wh.Names(), wh.Matrix(), wh.ColoringMatrix(), 0)
		require.ErrorIs(t, err, errs.ErrSingularCovariance)
	})
}

func TestWhitener_Apply_DimensionMismatch(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	nc, err := cov.New(names(4), spdCovariance(rng, 4))
	require.NoError(t, err)
	wh, err := Build(nc)
	require.NoError(t, err)

	_, err = wh.Apply(mat.NewDense(3, 10, nil))
	require.ErrorIs(t, err, errs.ErrDimensionMismatch)
	_, err = wh.Color(mat.NewDense(5, 10, nil))
	require.ErrorIs(t, err, errs.ErrDimensionMismatch)
}
