// Package errs defines the sentinel errors shared across minv packages.
//
// All errors are deterministic contract violations detected synchronously at
// the call site; none are transient. Callers match them with errors.Is, since
// components wrap them with the offending dimensions and counts:
//
//	op, err := inverse.Build(fwd, nc, 0.2, 0.8)
//	if errors.Is(err, errs.ErrIncompatibleForward) {
//	    // forward and covariance channel sets do not overlap
//	}
package errs

import "errors"

// Numerical-contract errors raised by the estimation and solve components.
var (
	// ErrInsufficientData indicates the baseline segments carry no more
	// samples than there are channels, so the sample covariance cannot
	// reach its expected rank.
	ErrInsufficientData = errors.New("insufficient samples for covariance estimation")

	// ErrSingularCovariance indicates no eigenvalue of the noise covariance
	// survived the rank determination, leaving nothing to whiten with.
	ErrSingularCovariance = errors.New("noise covariance has zero retained rank")

	// ErrIncompatibleForward indicates the forward model and noise
	// covariance share no channels after intersecting their channel sets.
	ErrIncompatibleForward = errors.New("forward model and covariance channel sets are incompatible")

	// ErrDegenerateSourceSpace indicates the forward model carries zero
	// usable source locations.
	ErrDegenerateSourceSpace = errors.New("forward model has no usable source locations")

	// ErrDimensionMismatch indicates sensor data whose channel count or
	// ordering disagrees with the operator or transform it is applied to.
	ErrDimensionMismatch = errors.New("sensor dimension mismatch")

	// ErrInvalidMethod indicates an unrecognized inverse method or
	// orientation-pooling enum value.
	ErrInvalidMethod = errors.New("invalid inverse method or orientation pick")

	// ErrEmptyRange indicates a half-open sample range [start, stop) with
	// start >= stop.
	ErrEmptyRange = errors.New("empty sample range")

	// ErrInvalidPrior indicates a loose or depth prior parameter outside
	// the closed interval [0, 1].
	ErrInvalidPrior = errors.New("prior parameter out of [0, 1]")

	// ErrInvalidLambda indicates a non-positive Tikhonov regularization
	// parameter.
	ErrInvalidLambda = errors.New("regularization parameter must be positive")

	// ErrUnknownVertex indicates a label vertex that is not part of the
	// operator's source space.
	ErrUnknownVertex = errors.New("vertex not present in source space")
)

// Serialization errors raised by the section and blob packages.
var (
	// ErrInvalidHeaderSize indicates a blob too short to contain its
	// fixed-size header.
	ErrInvalidHeaderSize = errors.New("invalid header size")

	// ErrInvalidMagic indicates header magic bits that do not identify a
	// minv operator or estimate blob.
	ErrInvalidMagic = errors.New("invalid blob magic")

	// ErrUnsupportedVersion indicates a blob written by an incompatible
	// format version.
	ErrUnsupportedVersion = errors.New("unsupported blob format version")

	// ErrInvalidCompression indicates an unrecognized compression type in
	// a blob header or encoder option.
	ErrInvalidCompression = errors.New("invalid compression type")

	// ErrChecksumMismatch indicates blob payload bytes that do not match
	// the trailing integrity checksum.
	ErrChecksumMismatch = errors.New("blob checksum mismatch")

	// ErrInvalidPayload indicates a structurally malformed blob payload,
	// e.g. a section extending past the end of the data.
	ErrInvalidPayload = errors.New("invalid blob payload")
)
