// Package cov estimates regularized noise-covariance matrices from baseline
// sensor-data segments.
//
// Two estimators are provided: the empirical sample covariance and
// Ledoit-Wolf shrinkage toward a scaled identity. When several methods are
// requested at once, the best one is selected by Gaussian log-likelihood on
// held-out data and then refit on the full input.
//
// The resulting NoiseCovariance carries its eigen-decomposition and numerical
// rank, which the whitener consumes directly; a covariance left rank
// deficient by signal-space projections is reported as such, never inverted
// naively.
package cov

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/neurogo/minv/errs"
	"github.com/neurogo/minv/format"
	"github.com/neurogo/minv/internal/options"
)

// rankTol is the relative eigenvalue threshold for numerical rank
// determination.
const rankTol = 1e-12

// NoiseCovariance is a symmetric positive-semi-definite matrix over sensor
// channels, with the eigen-decomposition used downstream for whitening.
// Immutable once estimated.
type NoiseCovariance struct {
	names     []string
	data      *mat.SymDense
	eigvals   []float64 // descending
	eigvecs   *mat.Dense
	rank      int
	dof       int
	method    format.CovMethod
	shrinkage float64
}

// New wraps an externally supplied covariance matrix, computing its
// eigen-decomposition and numerical rank.
func New(names []string, data *mat.SymDense) (*NoiseCovariance, error) {
	if data.SymmetricDim() != len(names) {
		return nil, fmt.Errorf("%w: covariance is %dx%d for %d channels",
			errs.ErrDimensionMismatch, data.SymmetricDim(), data.SymmetricDim(), len(names))
	}

	nc := &NoiseCovariance{
		names:  append([]string(nil), names...),
		data:   data,
		method: format.CovEmpirical,
	}
	if err := nc.decompose(); err != nil {
		return nil, err
	}

	return nc, nil
}

// Names returns the channel names, in matrix order.
func (nc *NoiseCovariance) Names() []string {
	return nc.names
}

// Dim returns the channel count.
func (nc *NoiseCovariance) Dim() int {
	return len(nc.names)
}

// Matrix returns the covariance matrix by reference; callers must not modify
// it.
func (nc *NoiseCovariance) Matrix() *mat.SymDense {
	return nc.data
}

// Rank returns the numerical rank after eigenvalue thresholding.
func (nc *NoiseCovariance) Rank() int {
	return nc.rank
}

// Dof returns the degrees of freedom (sample count) behind the estimate,
// 0 for externally supplied matrices.
func (nc *NoiseCovariance) Dof() int {
	return nc.dof
}

// Method returns the estimator that produced this covariance.
func (nc *NoiseCovariance) Method() format.CovMethod {
	return nc.method
}

// Shrinkage returns the Ledoit-Wolf shrinkage coefficient, 0 for empirical.
func (nc *NoiseCovariance) Shrinkage() float64 {
	return nc.shrinkage
}

// Eigen returns the eigenvalues in descending order and the matching
// eigenvector columns. Both are copies.
func (nc *NoiseCovariance) Eigen() ([]float64, *mat.Dense) {
	vals := append([]float64(nil), nc.eigvals...)
	vecs := mat.DenseCopyOf(nc.eigvecs)

	return vals, vecs
}

// Subset returns the covariance restricted to the named channels, in the
// given order, with a fresh eigen-decomposition.
func (nc *NoiseCovariance) Subset(names []string) (*NoiseCovariance, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		idx[i] = -1
		for j, n := range nc.names {
			if n == name {
				idx[i] = j
				break
			}
		}
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: channel %q not in covariance",
				errs.ErrIncompatibleForward, name)
		}
	}

	sub := mat.NewSymDense(len(names), nil)
	for i := range names {
		for j := i; j < len(names); j++ {
			sub.SetSym(i, j, nc.data.At(idx[i], idx[j]))
		}
	}

	out := &NoiseCovariance{
		names:     append([]string(nil), names...),
		data:      sub,
		dof:       nc.dof,
		method:    nc.method,
		shrinkage: nc.shrinkage,
	}
	if err := out.decompose(); err != nil {
		return nil, err
	}

	return out, nil
}

// decompose computes the descending eigen-decomposition and numerical rank.
func (nc *NoiseCovariance) decompose() error {
	var es mat.EigenSym
	if !es.Factorize(nc.data, true) {
		return fmt.Errorf("eigen-decomposition of %dx%d covariance failed", nc.Dim(), nc.Dim())
	}
	asc := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	// gonum returns eigenvalues ascending; store descending.
	p := len(asc)
	nc.eigvals = make([]float64, p)
	nc.eigvecs = mat.NewDense(p, p, nil)
	for i := 0; i < p; i++ {
		nc.eigvals[i] = asc[p-1-i]
		for r := 0; r < p; r++ {
			nc.eigvecs.Set(r, i, vecs.At(r, p-1-i))
		}
	}

	nc.rank = 0
	if p > 0 && nc.eigvals[0] > 0 {
		floor := nc.eigvals[0] * rankTol
		for _, v := range nc.eigvals {
			if v > floor {
				nc.rank++
			}
		}
	}

	return nil
}

type estimateConfig struct {
	holdout float64
	logger  *slog.Logger
}

// EstimateOption configures Estimate.
type EstimateOption = options.Option[*estimateConfig]

// WithHoldoutFraction sets the fraction of data held out for model selection
// when multiple methods are requested. Default 0.2.
func WithHoldoutFraction(f float64) EstimateOption {
	return options.New(func(c *estimateConfig) error {
		if f <= 0 || f >= 1 {
			return fmt.Errorf("holdout fraction must be in (0, 1), got %g", f)
		}
		c.holdout = f

		return nil
	})
}

// WithLogger sets the diagnostics sink. The default discards everything.
func WithLogger(logger *slog.Logger) EstimateOption {
	return options.NoError(func(c *estimateConfig) {
		c.logger = logger
	})
}

// Estimate computes a noise covariance from baseline segments.
//
// All segments must share the channel count of names; their samples are
// pooled after per-channel centering. With a single method the estimator is
// applied directly. With several, each candidate is fit on a training split,
// scored by mean Gaussian log-likelihood on the held-out split, and the
// winner is refit on everything.
//
// Fails with errs.ErrInsufficientData when the pooled sample count does not
// exceed the channel count.
func Estimate(names []string, segments []*mat.Dense, methods []format.CovMethod, opts ...EstimateOption) (*NoiseCovariance, error) {
	cfg := estimateConfig{holdout: 0.2, logger: slog.New(slog.DiscardHandler)}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no covariance methods requested")
	}
	for _, m := range methods {
		if m != format.CovEmpirical && m != format.CovShrunk {
			return nil, fmt.Errorf("unknown covariance method %d", m)
		}
	}

	x, err := poolSegments(names, segments)
	if err != nil {
		return nil, err
	}
	p, n := x.Dims()
	if n <= p {
		return nil, fmt.Errorf("%w: %d samples for %d channels",
			errs.ErrInsufficientData, n, p)
	}
	center(x)

	chosen := methods[0]
	if len(methods) > 1 {
		chosen, err = selectMethod(x, methods, cfg)
		if err != nil {
			return nil, err
		}
	}

	data, shrinkage := fit(x, chosen)
	nc := &NoiseCovariance{
		names:     append([]string(nil), names...),
		data:      data,
		dof:       n - 1,
		method:    chosen,
		shrinkage: shrinkage,
	}
	if err := nc.decompose(); err != nil {
		return nil, err
	}

	cfg.logger.Info("estimated noise covariance",
		"method", chosen.String(), "rank", nc.rank, "dof", nc.dof,
		"shrinkage", shrinkage)

	return nc, nil
}

// poolSegments concatenates segments along the sample axis.
func poolSegments(names []string, segments []*mat.Dense) (*mat.Dense, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no segments", errs.ErrInsufficientData)
	}
	p := len(names)
	total := 0
	for i, seg := range segments {
		r, c := seg.Dims()
		if r != p {
			return nil, fmt.Errorf("%w: segment %d has %d channels, expected %d",
				errs.ErrDimensionMismatch, i, r, p)
		}
		total += c
	}

	x := mat.NewDense(p, total, nil)
	at := 0
	for _, seg := range segments {
		_, c := seg.Dims()
		x.Slice(0, p, at, at+c).(*mat.Dense).Copy(seg)
		at += c
	}

	return x, nil
}

// center removes the per-channel mean in place.
func center(x *mat.Dense) {
	p, n := x.Dims()
	for i := 0; i < p; i++ {
		sum := 0.0
		for t := 0; t < n; t++ {
			sum += x.At(i, t)
		}
		mean := sum / float64(n)
		for t := 0; t < n; t++ {
			x.Set(i, t, x.At(i, t)-mean)
		}
	}
}

// fit applies one estimator to centered data.
func fit(x *mat.Dense, method format.CovMethod) (*mat.SymDense, float64) {
	if method == format.CovShrunk {
		return ledoitWolf(x)
	}

	return empirical(x), 0
}

// empirical computes the unbiased sample covariance of centered data.
func empirical(x *mat.Dense) *mat.SymDense {
	p, n := x.Dims()
	var xxt mat.Dense
	xxt.Mul(x, x.T())

	s := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			s.SetSym(i, j, xxt.At(i, j)/float64(n-1))
		}
	}

	return s
}

// ledoitWolf computes the analytic Ledoit-Wolf shrinkage estimate toward a
// scaled identity: C = (1-a) S + a mu I with the coefficient a minimizing the
// expected squared error. The biased (1/n) sample covariance is used inside
// the formula, per the original derivation. Returns the estimate and a.
func ledoitWolf(x *mat.Dense) (*mat.SymDense, float64) {
	p, n := x.Dims()
	fn := float64(n)

	var xxt mat.Dense
	xxt.Mul(x, x.T())
	s := mat.NewDense(p, p, nil)
	s.Scale(1/fn, &xxt)

	// mu = tr(S)/p, d^2 = ||S - mu I||_F^2 / p
	mu := 0.0
	for i := 0; i < p; i++ {
		mu += s.At(i, i)
	}
	mu /= float64(p)

	d2 := 0.0
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			v := s.At(i, j)
			if i == j {
				v -= mu
			}
			d2 += v * v
		}
	}
	d2 /= float64(p)

	// b^2 = min(d^2, (1/n^2) sum_k ||x_k x_k^T - S||_F^2 / p), expanded as
	// ||x_k||^4 - 2 x_k^T S x_k + ||S||_F^2 per sample.
	normS2 := 0.0
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			normS2 += s.At(i, j) * s.At(i, j)
		}
	}

	b2 := 0.0
	sx := make([]float64, p)
	for k := 0; k < n; k++ {
		norm2 := 0.0
		for i := 0; i < p; i++ {
			norm2 += x.At(i, k) * x.At(i, k)
		}
		for i := 0; i < p; i++ {
			acc := 0.0
			for j := 0; j < p; j++ {
				acc += s.At(i, j) * x.At(j, k)
			}
			sx[i] = acc
		}
		qf := 0.0
		for i := 0; i < p; i++ {
			qf += x.At(i, k) * sx[i]
		}
		b2 += norm2*norm2 - 2*qf + normS2
	}
	b2 /= fn * fn * float64(p)
	b2 = math.Min(b2, d2)

	a := 0.0
	if d2 > 0 {
		a = b2 / d2
	}

	out := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := (1 - a) * s.At(i, j)
			if i == j {
				v += a * mu
			}
			out.SetSym(i, j, v)
		}
	}

	return out, a
}

// selectMethod fits every candidate on the leading samples and scores it on
// the trailing holdout, returning the method with the best mean held-out
// Gaussian log-likelihood.
func selectMethod(x *mat.Dense, methods []format.CovMethod, cfg estimateConfig) (format.CovMethod, error) {
	p, n := x.Dims()
	nHold := max(1, int(math.Round(cfg.holdout*float64(n))))
	nTrain := n - nHold
	if nTrain <= p {
		return 0, fmt.Errorf("%w: %d training samples for %d channels after holdout",
			errs.ErrInsufficientData, nTrain, p)
	}

	train := x.Slice(0, p, 0, nTrain).(*mat.Dense)
	hold := x.Slice(0, p, nTrain, n).(*mat.Dense)

	best := methods[0]
	bestLL := math.Inf(-1)
	for _, m := range methods {
		c, shrink := fit(train, m)
		ll, err := gaussianLogLik(c, hold)
		if err != nil {
			return 0, err
		}
		cfg.logger.Debug("covariance model selection",
			"method", m.String(), "loglik", ll, "shrinkage", shrink)
		if ll > bestLL {
			bestLL = ll
			best = m
		}
	}

	return best, nil
}

// gaussianLogLik computes the mean per-sample log-likelihood of zero-mean
// samples under N(0, c). Eigenvalues are floored relative to the largest so a
// singular candidate is penalized heavily but finitely.
func gaussianLogLik(c *mat.SymDense, x *mat.Dense) (float64, error) {
	p, n := x.Dims()

	var es mat.EigenSym
	if !es.Factorize(c, true) {
		return 0, fmt.Errorf("eigen-decomposition failed during model selection")
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	maxval := vals[len(vals)-1]
	if maxval <= 0 {
		return math.Inf(-1), nil
	}
	floor := maxval * 1e-15

	logdet := 0.0
	inv := make([]float64, p)
	for i, v := range vals {
		v = math.Max(v, floor)
		logdet += math.Log(v)
		inv[i] = 1 / v
	}

	// x^T C^-1 x via the eigenbasis: sum_i (u_i . x)^2 / lambda_i.
	var proj mat.Dense
	proj.Mul(vecs.T(), x)

	quad := 0.0
	for i := 0; i < p; i++ {
		for t := 0; t < n; t++ {
			v := proj.At(i, t)
			quad += v * v * inv[i]
		}
	}

	ll := -0.5 * (float64(n)*(float64(p)*math.Log(2*math.Pi)+logdet) + quad)

	return ll / float64(n), nil
}
