// Package whiten derives whitening transforms from noise covariances.
//
// A whitener maps sensor data into a space where the noise is unit-variance
// and isotropic, by way of the covariance's eigen-decomposition with a
// regularization floor. Rank-deficient covariances, routine after
// signal-space projection, are handled by restricting the transform to the
// retained eigenvalue subspace rather than inverting naively.
package whiten

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/neurogo/minv/cov"
	"github.com/neurogo/minv/errs"
	"github.com/neurogo/minv/internal/options"
)

// Whitener is the rank-restricted inverse square root of a noise covariance.
// Immutable and safe for concurrent use.
type Whitener struct {
	names []string
	w     *mat.Dense // whitening transform, channels x channels
	winv  *mat.Dense // coloring transform, pseudo-inverse of w
	rank  int
}

type buildConfig struct {
	rank int
}

// BuildOption configures Build.
type BuildOption = options.Option[*buildConfig]

// WithRank overrides the covariance's numerical rank. Eigenvalues beyond the
// explicit rank are discarded even when numerically nonzero; an explicit rank
// larger than the numerical one is capped.
func WithRank(rank int) BuildOption {
	return options.New(func(c *buildConfig) error {
		if rank < 0 {
			return fmt.Errorf("rank must be non-negative, got %d", rank)
		}
		c.rank = rank

		return nil
	})
}

// Build constructs the whitening transform from a covariance's retained
// eigenpairs: W = U diag(1/sqrt(lambda)) U^T over the first rank components.
//
// Fails with errs.ErrSingularCovariance when the retained rank is zero.
func Build(nc *cov.NoiseCovariance, opts ...BuildOption) (*Whitener, error) {
	cfg := buildConfig{}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	rank := nc.Rank()
	if cfg.rank > 0 && cfg.rank < rank {
		rank = cfg.rank
	}
	if rank == 0 {
		return nil, fmt.Errorf("%w: covariance over %d channels",
			errs.ErrSingularCovariance, nc.Dim())
	}

	vals, vecs := nc.Eigen()
	p := nc.Dim()

	// W = U_r diag(1/sqrt(lambda)) U_r^T, Winv = U_r diag(sqrt(lambda)) U_r^T.
	w := mat.NewDense(p, p, nil)
	winv := mat.NewDense(p, p, nil)
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			sw, sc := 0.0, 0.0
			for k := 0; k < rank; k++ {
				prod := vecs.At(i, k) * vecs.At(j, k)
				sw += prod / math.Sqrt(vals[k])
				sc += prod * math.Sqrt(vals[k])
			}
			w.Set(i, j, sw)
			winv.Set(i, j, sc)
		}
	}

	return &Whitener{
		names: nc.Names(),
		w:     w,
		winv:  winv,
		rank:  rank,
	}, nil
}

// Restore reassembles a whitener from serialized parts. It is intended for
// blob decoding; w and winv must be the matched transform pair produced by
// Build.
func Restore(names []string, w, winv *mat.Dense, rank int) (*Whitener, error) {
	p := len(names)
	wr, wc := w.Dims()
	ir, ic := winv.Dims()
	if wr != p || wc != p || ir != p || ic != p {
		return nil, fmt.Errorf("%w: transforms %dx%d and %dx%d for %d channels",
			errs.ErrDimensionMismatch, wr, wc, ir, ic, p)
	}
	if rank <= 0 || rank > p {
		return nil, fmt.Errorf("%w: rank %d for %d channels",
			errs.ErrSingularCovariance, rank, p)
	}

	return &Whitener{names: names, w: w, winv: winv, rank: rank}, nil
}

// Names returns the channel names the whitener was built over.
func (wh *Whitener) Names() []string {
	return wh.names
}

// Dim returns the channel count.
func (wh *Whitener) Dim() int {
	return len(wh.names)
}

// Rank returns the retained rank.
func (wh *Whitener) Rank() int {
	return wh.rank
}

// Matrix returns a copy of the whitening transform.
func (wh *Whitener) Matrix() *mat.Dense {
	return mat.DenseCopyOf(wh.w)
}

// ColoringMatrix returns a copy of the coloring (inverse) transform.
func (wh *Whitener) ColoringMatrix() *mat.Dense {
	return mat.DenseCopyOf(wh.winv)
}

// Apply whitens data (channels x samples), returning a new matrix.
func (wh *Whitener) Apply(data *mat.Dense) (*mat.Dense, error) {
	if err := wh.checkDim(data); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Mul(wh.w, data)

	return &out, nil
}

// Color applies the pseudo-inverse transform. Composed with Apply it
// reconstructs data exactly on the retained subspace; components in the
// discarded nullspace stay discarded.
func (wh *Whitener) Color(data *mat.Dense) (*mat.Dense, error) {
	if err := wh.checkDim(data); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Mul(wh.winv, data)

	return &out, nil
}

func (wh *Whitener) checkDim(data *mat.Dense) error {
	r, _ := data.Dims()
	if r != wh.Dim() {
		return fmt.Errorf("%w: data has %d channels, whitener has %d",
			errs.ErrDimensionMismatch, r, wh.Dim())
	}

	return nil
}
