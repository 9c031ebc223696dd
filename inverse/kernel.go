package inverse

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/neurogo/minv/errs"
	"github.com/neurogo/minv/format"
)

// kernel assembles the solve kernel for one (lambda2, method, nave) triple:
//
//	K = R^1/2 V diag(s/(s^2+lambda2)) U^T W
//
// mapping raw sensor data straight to the MNE estimate. For dSPM and sLORETA
// it additionally returns the per-location noise normalization the estimate
// rows are divided by; the normalization carries the nave convention, scaling
// the normalized estimates by sqrt(nave/op.nave) while leaving the MNE
// estimate untouched.
func (op *Operator) kernel(lambda2 float64, method format.Method, nave int) (*mat.Dense, []float64, error) {
	if lambda2 <= 0 {
		return nil, nil, fmt.Errorf("%w: lambda2=%g", errs.ErrInvalidLambda, lambda2)
	}
	if !method.Valid() {
		return nil, nil, fmt.Errorf("%w: method %d", errs.ErrInvalidMethod, method)
	}
	if nave < 1 {
		return nil, nil, fmt.Errorf("nave must be at least 1, got %d", nave)
	}

	r := len(op.sing)
	nchan := op.NChannels()
	ncomp := op.nComponents()

	reginv := make([]float64, r)
	for i, s := range op.sing {
		reginv[i] = s / (s*s + lambda2)
	}

	// trans = diag(reginv) U^T W, r x nchan.
	w := op.whit.Matrix()
	var ut mat.Dense
	ut.Mul(op.fields.T(), w)
	for i := 0; i < r; i++ {
		for j := 0; j < nchan; j++ {
			ut.Set(i, j, ut.At(i, j)*reginv[i])
		}
	}

	var k mat.Dense
	k.Mul(op.leads, &ut)
	for i := 0; i < ncomp; i++ {
		s := math.Sqrt(op.prior[i])
		for j := 0; j < nchan; j++ {
			k.Set(i, j, k.At(i, j)*s)
		}
	}

	if method == format.MethodMNE {
		return &k, nil, nil
	}

	norm, err := op.noiseNorm(lambda2, method, reginv, nave)
	if err != nil {
		return nil, nil, err
	}

	return &k, norm, nil
}

// noiseNorm computes the per-location normalization denominators.
//
// For dSPM the denominator is the noise standard deviation of each
// location's estimate: the row norm of R^1/2 V diag(reginv), since whitened
// noise is unit-variance. For sLORETA the singular weighting is
// reginv * sqrt(1 + s^2/lambda2), the resolution projected through the
// source prior. Free-orientation locations pool their three components into
// one denominator.
//
// The source prior scales with op.nave/nave, so the normalized estimate
// scales with sqrt(nave): cross-comparison between per-trial and
// pre-averaged applications holds exactly.
func (op *Operator) noiseNorm(lambda2 float64, method format.Method, reginv []float64, nave int) ([]float64, error) {
	r := len(op.sing)
	scale := float64(op.nave) / float64(nave)

	weight := make([]float64, r)
	switch method {
	case format.MethodDSPM:
		copy(weight, reginv)
	case format.MethodSLORETA:
		for i, s := range op.sing {
			weight[i] = reginv[i] * math.Sqrt(1+s*s/lambda2)
		}
	default:
		return nil, fmt.Errorf("%w: method %d has no noise normalization", errs.ErrInvalidMethod, method)
	}

	nloc := op.NLocations()
	norm := make([]float64, nloc)
	for loc := 0; loc < nloc; loc++ {
		sum := 0.0
		for c := 0; c < op.norien; c++ {
			i := loc*op.norien + c
			rowsum := 0.0
			for j := 0; j < r; j++ {
				v := op.leads.At(i, j) * weight[j]
				rowsum += v * v
			}
			sum += op.prior[i] * scale * rowsum
		}
		if sum <= 0 {
			return nil, fmt.Errorf("%w: zero noise sensitivity at location %d",
				errs.ErrDegenerateSourceSpace, loc)
		}
		norm[loc] = math.Sqrt(sum)
	}

	return norm, nil
}
