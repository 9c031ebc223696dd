// Package inverse implements the regularized linear inverse solution at the
// heart of minv: building a reusable inverse operator from a forward model
// and a noise covariance, and applying it to sensor data to produce
// source-space estimates.
//
// # Building
//
// Build whitens the leadfield with the covariance's whitener, applies the
// depth-compensation and loose-orientation priors, and stores the thin SVD of
// the result. The Tikhonov regularization parameter lambda2 is deliberately
// NOT fixed at build time: the operator stores the factored solve, so one
// operator serves any SNR assumption.
//
//	op, err := inverse.Build(fwd, noiseCov, 0.2, 0.8)
//
// # Applying
//
// Apply assembles the solve kernel for a given lambda2 and method and runs it
// over an evoked response:
//
//	stc, err := inverse.Apply(evoked, op, 1.0/9.0, format.MethodDSPM, format.PickNone)
//
// The three methods share the same linear solve and differ only in a
// per-location post-hoc scaling: MNE is unscaled, dSPM divides by the noise
// sensitivity of each location, sLORETA divides by the resolution projected
// through the source prior. ApplyEpochs maps the solve over trials (in
// parallel, preserving input order) and ApplyRaw handles continuous segments
// with an optional region-of-interest restriction.
//
// The operator is immutable after Build and safe for any number of
// concurrent applications.
package inverse
