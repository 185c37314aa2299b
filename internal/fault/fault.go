// Package fault defines the error taxonomy shared by the engine packages.
// ConfigError is construction-time only; SampleError and InputError are
// per-call and recoverable; InstabilityError is fatal for the call that
// produced it.
package fault

import "fmt"

// #region config-error

// ConfigError reports an invalid construction parameter. It is never
// produced after construction succeeds.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Configf builds a ConfigError with a formatted reason.
func Configf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// #endregion config-error

// #region sample-error

// SampleError reports a malformed telemetry record: wrong dimension
// count, an unknown or missing dimension, or a negative dt. Per-call and
// recoverable; the caller may skip or resubmit a corrected sample.
type SampleError struct {
	Reason string
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("malformed sample: %s", e.Reason)
}

// Samplef builds a SampleError with a formatted reason.
func Samplef(format string, args ...any) *SampleError {
	return &SampleError{Reason: fmt.Sprintf(format, args...)}
}

// #endregion sample-error

// #region input-error

// InputError reports raw telemetry outside its declared calibration domain.
// The caller may skip or resubmit the sample; no internal state is touched.
type InputError struct {
	Dimension string
	Value     float64
	Lo        float64
	Hi        float64
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input out of calibration domain: %s=%g outside [%g, %g]",
		e.Dimension, e.Value, e.Lo, e.Hi)
}

// #endregion input-error

// #region instability-error

// InstabilityError reports a non-finite or out-of-bounds integrator result.
// The phase state that produced it remains valid; the caller decides whether
// to retry or reset.
type InstabilityError struct {
	Z       float64
	Forcing float64
	DT      float64
	Reason  string
}

func (e *InstabilityError) Error() string {
	return fmt.Sprintf("numeric instability: %s (z=%g forcing=%g dt=%g)",
		e.Reason, e.Z, e.Forcing, e.DT)
}

// #endregion instability-error
