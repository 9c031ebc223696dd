// Package minv implements linear inverse solutions for MEG/EEG source
// localization: minimum-norm estimation (MNE) and its noise-normalized
// variants dSPM and sLORETA.
//
// The pipeline runs strictly forward: baseline segments feed the covariance
// estimator, the covariance yields a whitener, the whitener and a forward
// (leadfield) model combine into a reusable inverse operator, and the
// operator maps sensor data to source-space estimates. The operator is
// immutable once built: one build serves any number of applications, any
// SNR assumption and all three methods, since regularization and noise
// normalization happen at apply time.
//
// # Basic Usage
//
// Estimating a noise covariance from pre-stimulus baseline epochs and
// localizing an evoked response:
//
//	import "github.com/neurogo/minv"
//
//	// Epoch the recording around stimulus triggers, rejecting artifacts.
//	epochs, _ := sensor.ExtractEpochs(raw, events, 1, -0.2, 0.5,
//	    sensor.WithBaseline(-0.2, 0),
//	    sensor.WithReject(sensor.RejectThresholds{Grad: 4000e-13, Mag: 4e-12, EOG: 150e-6}),
//	)
//
//	// Noise covariance from the baseline period, with model selection.
//	nc, _ := minv.EstimateBaselineCovariance(epochs, -0.2, 0,
//	    format.CovEmpirical, format.CovShrunk)
//
//	// Build once...
//	op, _ := minv.MakeInverseOperator(fwd, nc, 0.2, 0.8)
//
//	// ...apply many times. lambda2 = 1/SNR^2.
//	evoked, _ := epochs.Average()
//	stc, _ := minv.ApplyInverse(evoked, op, 1.0/9.0, format.MethodDSPM, format.PickNone)
//
// Persisting an operator for later sessions:
//
//	data, _ := minv.EncodeOperator(op, format.CompressionZstd)
//	op2, _ := minv.DecodeOperator(data)
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the component
// packages, simplifying the most common workflow. For fine-grained control
// use the components directly: sensor (epoching), cov (covariance
// estimation), whiten (whitening transforms), forward (leadfield models),
// inverse (the operator and its applications), label (regions of interest)
// and blob (serialization).
package minv

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/neurogo/minv/blob"
	"github.com/neurogo/minv/cov"
	"github.com/neurogo/minv/errs"
	"github.com/neurogo/minv/format"
	"github.com/neurogo/minv/forward"
	"github.com/neurogo/minv/internal/hash"
	"github.com/neurogo/minv/inverse"
	"github.com/neurogo/minv/sensor"
)

// RawDataSource yields a continuous recording and its trigger events.
// Implementations live outside the core (file readers, acquisition
// bindings).
type RawDataSource interface {
	Read() (*sensor.Raw, []sensor.Event, error)
}

// ForwardModelSource yields a forward model for a head/source geometry.
// Forward computation (BEM, sphere models) is outside the core.
type ForwardModelSource interface {
	Forward() (*forward.Model, error)
}

// SurfaceMorpher maps a source estimate between source spaces, e.g. from a
// subject-specific cortex to a template, via a precomputed vertex
// correspondence.
type SurfaceMorpher interface {
	Morph(stc *inverse.SourceEstimate) (*inverse.SourceEstimate, error)
}

// EstimateBaselineCovariance estimates a noise covariance from the
// [bmin, bmax] window (seconds relative to the event) of each epoch. With
// several methods the best is chosen by held-out log-likelihood.
func EstimateBaselineCovariance(ep *sensor.Epochs, bmin, bmax float64, methods ...format.CovMethod) (*cov.NoiseCovariance, error) {
	sfreq := ep.Info.SFreq
	nsamp := ep.NSamples()
	b0 := int(math.Round((bmin - ep.TMin) * sfreq))
	b1 := int(math.Round((bmax-ep.TMin)*sfreq)) + 1
	b0 = max(b0, 0)
	b1 = min(b1, nsamp)
	if b0 >= b1 {
		return nil, fmt.Errorf("%w: baseline [%g, %g] covers no samples",
			errs.ErrEmptyRange, bmin, bmax)
	}

	nchan := ep.Info.NChannels()
	segments := make([]*mat.Dense, 0, ep.NEpochs())
	for _, trial := range ep.Data {
		segments = append(segments, mat.DenseCopyOf(trial.Slice(0, nchan, b0, b1)))
	}

	return cov.Estimate(ep.Info.Names, segments, methods)
}

// MakeInverseOperator builds an inverse operator; see inverse.Build.
func MakeInverseOperator(fwd *forward.Model, nc *cov.NoiseCovariance, loose, depth float64) (*inverse.Operator, error) {
	return inverse.Build(fwd, nc, loose, depth)
}

// ApplyInverse localizes an evoked response; see inverse.Apply.
func ApplyInverse(ev *sensor.Evoked, op *inverse.Operator, lambda2 float64, method format.Method, pick format.PickOri) (*inverse.SourceEstimate, error) {
	return inverse.Apply(ev, op, lambda2, method, pick)
}

// ApplyInverseEpochs localizes every trial; see inverse.ApplyEpochs.
func ApplyInverseEpochs(ep *sensor.Epochs, op *inverse.Operator, lambda2 float64, method format.Method, pick format.PickOri, opts ...inverse.ApplyOption) ([]*inverse.SourceEstimate, error) {
	return inverse.ApplyEpochs(ep, op, lambda2, method, pick, opts...)
}

// ApplyInverseRaw localizes a continuous segment; see inverse.ApplyRaw.
func ApplyInverseRaw(raw *sensor.Raw, op *inverse.Operator, lambda2 float64, method format.Method, pick format.PickOri, start, stop int, opts ...inverse.ApplyOption) (*inverse.SourceEstimate, error) {
	return inverse.ApplyRaw(raw, op, lambda2, method, pick, start, stop, opts...)
}

// EncodeOperator serializes an operator with the given payload compression.
func EncodeOperator(op *inverse.Operator, compression format.CompressionType) ([]byte, error) {
	enc, err := blob.NewOperatorEncoder(blob.WithDataCompression(compression))
	if err != nil {
		return nil, err
	}

	return enc.Encode(op)
}

// DecodeOperator reassembles a serialized operator.
func DecodeOperator(data []byte) (*inverse.Operator, error) {
	return blob.DecodeOperator(data)
}

// EncodeEstimate serializes a source estimate with the given payload
// compression.
func EncodeEstimate(stc *inverse.SourceEstimate, compression format.CompressionType) ([]byte, error) {
	enc, err := blob.NewEstimateEncoder(blob.WithEstimateCompression(compression))
	if err != nil {
		return nil, err
	}

	return enc.Encode(stc)
}

// DecodeEstimate reassembles a serialized source estimate.
func DecodeEstimate(data []byte) (*inverse.SourceEstimate, error) {
	return blob.DecodeEstimate(data)
}

// HashID computes the xxHash64 id of a string, e.g. a forward-model file
// path used as a reference id.
func HashID(data string) uint64 {
	return hash.ID(data)
}
