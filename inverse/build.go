package inverse

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/neurogo/minv/cov"
	"github.com/neurogo/minv/errs"
	"github.com/neurogo/minv/forward"
	"github.com/neurogo/minv/internal/hash"
	"github.com/neurogo/minv/internal/options"
	"github.com/neurogo/minv/whiten"
)

// depthLimit caps the relative depth-weight amplification: no location's
// prior may exceed depthLimit^2 times the weight of the most sensitive
// location. Locations with zero leadfield sensitivity are clamped to the cap.
const depthLimit = 10.0

// singTol is the relative singular-value threshold below which SVD
// components of the whitened leadfield are discarded.
const singTol = 1e-12

type buildConfig struct {
	rank   int
	logger *slog.Logger
}

// BuildOption configures Build.
type BuildOption = options.Option[*buildConfig]

// WithRank forwards an explicit rank to the whitener, overriding the
// covariance's numerical rank determination.
func WithRank(rank int) BuildOption {
	return options.New(func(c *buildConfig) error {
		if rank < 0 {
			return fmt.Errorf("rank must be non-negative, got %d", rank)
		}
		c.rank = rank

		return nil
	})
}

// WithLogger sets the diagnostics sink. The default discards everything.
func WithLogger(logger *slog.Logger) BuildOption {
	return options.NoError(func(c *buildConfig) {
		c.logger = logger
	})
}

// Build constructs an inverse operator from a forward model and a noise
// covariance.
//
// The channel sets of the two inputs are intersected in forward order; the
// leadfield is whitened with the covariance's whitening transform; the depth
// prior scales each location inversely with its whitened sensitivity to the
// power depth; the loose prior shrinks tangential orientation variance by
// loose, collapsing to the cortical-normal component alone when loose is 0.
// The thin SVD of the whitened, prior-weighted leadfield is stored; the
// regularization parameter is chosen per application, not here.
//
// loose and depth must lie in [0, 1]. Fails with errs.ErrIncompatibleForward
// when the channel sets do not overlap and errs.ErrDegenerateSourceSpace when
// no usable source locations remain.
func Build(fwd *forward.Model, nc *cov.NoiseCovariance, loose, depth float64, opts ...BuildOption) (*Operator, error) {
	cfg := buildConfig{logger: slog.New(slog.DiscardHandler)}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}
	if loose < 0 || loose > 1 {
		return nil, fmt.Errorf("%w: loose=%g", errs.ErrInvalidPrior, loose)
	}
	if depth < 0 || depth > 1 {
		return nil, fmt.Errorf("%w: depth=%g", errs.ErrInvalidPrior, depth)
	}

	names := intersectChannels(fwd.Names(), nc.Names())
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: forward has %d channels, covariance has %d, intersection empty",
			errs.ErrIncompatibleForward, len(fwd.Names()), len(nc.Names()))
	}
	if fwd.NLocations() == 0 {
		return nil, fmt.Errorf("%w: forward model has 0 locations", errs.ErrDegenerateSourceSpace)
	}

	picked, err := fwd.PickChannels(names)
	if err != nil {
		return nil, err
	}
	subcov, err := nc.Subset(names)
	if err != nil {
		return nil, err
	}

	var whitenOpts []whiten.BuildOption
	if cfg.rank > 0 {
		whitenOpts = append(whitenOpts, whiten.WithRank(cfg.rank))
	}
	wh, err := whiten.Build(subcov, whitenOpts...)
	if err != nil {
		return nil, err
	}

	wgain, err := wh.Apply(picked.Gain())
	if err != nil {
		return nil, err
	}

	depthW, err := depthWeights(wgain, fwd.NOrient(), depth)
	if err != nil {
		return nil, err
	}

	gain, prior, norien := orientationPrior(wgain, depthW, fwd.NOrient(), loose)

	// Scale columns by sqrt(prior) and factor: A = W G R^1/2 = U S V^T.
	nchan, ncomp := gain.Dims()
	for j := 0; j < ncomp; j++ {
		s := math.Sqrt(prior[j])
		for i := 0; i < nchan; i++ {
			gain.Set(i, j, gain.At(i, j)*s)
		}
	}

	var svd mat.SVD
	if !svd.Factorize(gain, mat.SVDThin) {
		return nil, fmt.Errorf("SVD of %dx%d whitened leadfield failed", nchan, ncomp)
	}
	sing := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	r := 0
	for _, s := range sing {
		if s > sing[0]*singTol {
			r++
		}
	}
	if r == 0 {
		return nil, fmt.Errorf("%w: whitened leadfield is identically zero",
			errs.ErrDegenerateSourceSpace)
	}

	op := &Operator{
		names:  names,
		whit:   wh,
		fields: mat.DenseCopyOf(u.Slice(0, nchan, 0, r)),
		sing:   sing[:r:r],
		leads:  mat.DenseCopyOf(v.Slice(0, ncomp, 0, r)),
		prior:  prior,
		src:    fwd.Src(),
		norien: norien,
		nave:   1,
		loose:  loose,
		depth:  depth,
		fwdRef: hash.ModelID(fwd.Names(), fwd.Src().Vertices),
	}

	cfg.logger.Info("built inverse operator",
		"channels", len(names), "locations", op.NLocations(),
		"orientations", norien, "rank", r, "loose", loose, "depth", depth)

	return op, nil
}

// intersectChannels returns the names present in both lists, in a's order.
func intersectChannels(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, n := range b {
		set[n] = struct{}{}
	}
	out := make([]string, 0, len(a))
	for _, n := range a {
		if _, ok := set[n]; ok {
			out = append(out, n)
		}
	}

	return out
}

// depthWeights computes the per-location depth-compensation prior from the
// whitened leadfield: w_k = s_k^-depth where s_k is the summed squared
// sensitivity of location k's columns, clamped to depthLimit^2 times the
// weight of the most sensitive location.
func depthWeights(wgain *mat.Dense, norien int, depth float64) ([]float64, error) {
	nchan, ncomp := wgain.Dims()
	nloc := ncomp / norien

	sens := make([]float64, nloc)
	anyNonzero := false
	for k := 0; k < nloc; k++ {
		s := 0.0
		for j := k * norien; j < (k+1)*norien; j++ {
			for i := 0; i < nchan; i++ {
				v := wgain.At(i, j)
				s += v * v
			}
		}
		sens[k] = s
		if s > 0 {
			anyNonzero = true
		}
	}
	if !anyNonzero {
		return nil, fmt.Errorf("%w: leadfield has no sensitivity anywhere",
			errs.ErrDegenerateSourceSpace)
	}

	w := make([]float64, nloc)
	if depth == 0 {
		for k := range w {
			w[k] = 1
		}

		return w, nil
	}

	wmin := math.Inf(1)
	for k, s := range sens {
		if s > 0 {
			w[k] = math.Pow(s, -depth)
			wmin = math.Min(wmin, w[k])
		}
	}
	wcap := wmin * depthLimit * depthLimit
	for k, s := range sens {
		if s == 0 || w[k] > wcap {
			w[k] = wcap
		}
	}

	return w, nil
}

// orientationPrior expands the per-location depth weights into per-component
// prior variances, applying the loose factor to tangential components. For
// loose == 0 on a free-orientation leadfield, the tangential columns are
// dropped and only the cortical-normal component (last of each triple)
// remains. Returns the effective gain, prior diagonal and component count.
func orientationPrior(wgain *mat.Dense, depthW []float64, norien int, loose float64) (*mat.Dense, []float64, int) {
	nchan, ncomp := wgain.Dims()
	nloc := len(depthW)

	if norien == 1 {
		return mat.DenseCopyOf(wgain), append([]float64(nil), depthW...), 1
	}

	if loose == 0 {
		fixed := mat.NewDense(nchan, nloc, nil)
		for k := 0; k < nloc; k++ {
			for i := 0; i < nchan; i++ {
				fixed.Set(i, k, wgain.At(i, k*3+2))
			}
		}

		return fixed, append([]float64(nil), depthW...), 1
	}

	prior := make([]float64, ncomp)
	for k := 0; k < nloc; k++ {
		prior[k*3] = depthW[k] * loose
		prior[k*3+1] = depthW[k] * loose
		prior[k*3+2] = depthW[k]
	}

	return mat.DenseCopyOf(wgain), prior, 3
}
