// Package phase evolves the bounded scalar phase variable z through a
// triple-well potential with a critical point, and classifies the regime.
package phase

import (
	"time"

	"github.com/kestrelops/cascade/internal/fault"
)

// #region regime

// Regime is one of three qualitatively distinct phase bands partitioning [0,1].
type Regime string

const (
	RegimeR1 Regime = "R1"
	RegimeR2 Regime = "R2"
	RegimeR3 Regime = "R3"
)

// Regimes lists the regimes in ascending z order.
var Regimes = [3]Regime{RegimeR1, RegimeR2, RegimeR3}

// #endregion regime

// #region phase-state

// PhaseState is an immutable snapshot of the phase variable. Only Model
// methods produce it.
type PhaseState struct {
	Z         float64
	Regime    Regime
	Velocity  float64
	Timestamp time.Time
}

// #endregion phase-state

// #region config

// Config holds the potential geometry and integrator limits.
//
// The regime partition is [0,Boundary1) / [Boundary1,Critical) / [Critical,1].
// Well centers sit at the midpoint of each regime; the potential gradient has
// minima there and maxima at the two boundaries, the upper one being the
// critical point.
type Config struct {
	Boundary1 float64 // R1/R2 boundary
	Critical  float64 // R2/R3 boundary, z_c

	WellGain        float64 // overall gradient scale
	SlowingRadius   float64 // gradient attenuation span around z_c
	MaxSubstepDelta float64 // cap on |dz| per integrator substep
	MaxDT           float64 // declared stability threshold; larger dt is substepped
	Tolerance       float64 // out-of-bounds clamp tolerance
}

// DefaultConfig returns the standard geometry with z_c = 0.867.
func DefaultConfig() Config {
	return Config{
		Boundary1:       0.45,
		Critical:        0.867,
		WellGain:        40.0,
		SlowingRadius:   0.06,
		MaxSubstepDelta: 0.02,
		MaxDT:           0.5,
		Tolerance:       1e-9,
	}
}

// Validate checks the partition and integrator limits.
func (c Config) Validate() error {
	if !(c.Boundary1 > 0 && c.Boundary1 < c.Critical && c.Critical < 1) {
		return fault.Configf("phase.boundaries", "need 0 < b1 < z_c < 1, got b1=%g z_c=%g", c.Boundary1, c.Critical)
	}
	if c.WellGain <= 0 {
		return fault.Configf("phase.well_gain", "must be positive, got %g", c.WellGain)
	}
	if c.SlowingRadius <= 0 {
		return fault.Configf("phase.slowing_radius", "must be positive, got %g", c.SlowingRadius)
	}
	if c.MaxSubstepDelta <= 0 || c.MaxSubstepDelta > 0.5 {
		return fault.Configf("phase.max_substep_delta", "must be in (0, 0.5], got %g", c.MaxSubstepDelta)
	}
	if c.MaxDT <= 0 {
		return fault.Configf("phase.max_dt", "must be positive, got %g", c.MaxDT)
	}
	if c.Tolerance <= 0 {
		return fault.Configf("phase.tolerance", "must be positive, got %g", c.Tolerance)
	}
	return nil
}

// WellCenters returns the three stable equilibria, one per regime.
func (c Config) WellCenters() [3]float64 {
	return [3]float64{
		c.Boundary1 / 2,
		(c.Boundary1 + c.Critical) / 2,
		(c.Critical + 1) / 2,
	}
}

// #endregion config
