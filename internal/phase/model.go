package phase

import (
	"math"
	"time"

	"github.com/kestrelops/cascade/internal/fault"
)

// #region model

// Model integrates dz/dt = -dF/dz + forcing over the triple-well potential.
// It holds no mutable state; every call is a pure function of its inputs.
type Model struct {
	cfg   Config
	wells [3]float64
}

// NewModel validates the configuration and precomputes the well geometry.
func NewModel(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Model{cfg: cfg, wells: cfg.WellCenters()}, nil
}

// Config returns the model configuration.
func (m *Model) Config() Config { return m.cfg }

// #endregion model

// #region init

// Init produces the initial phase state at z0.
func (m *Model) Init(z0 float64, t time.Time) (PhaseState, error) {
	if math.IsNaN(z0) || z0 < 0 || z0 > 1 {
		return PhaseState{}, fault.Configf("phase.initial_z", "must be in [0,1], got %g", z0)
	}
	return PhaseState{
		Z:         z0,
		Regime:    m.ClassifyRegime(z0),
		Velocity:  0,
		Timestamp: t,
	}, nil
}

// #endregion init

// #region classify

// ClassifyRegime maps z onto the regime partition
// [0,Boundary1) / [Boundary1,Critical) / [Critical,1]. Total over [0,1],
// no gaps, no overlap.
func (m *Model) ClassifyRegime(z float64) Regime {
	switch {
	case z < m.cfg.Boundary1:
		return RegimeR1
	case z < m.cfg.Critical:
		return RegimeR2
	default:
		return RegimeR3
	}
}

// DistanceToCritical returns |z - z_c|.
func (m *Model) DistanceToCritical(z float64) float64 {
	return math.Abs(z - m.cfg.Critical)
}

// #endregion classify

// #region gradient

// gradient evaluates dF/dz: a quintic with roots at the three well centers
// (minima) and the two regime boundaries (maxima). The smoothstep
// attenuation flattens the curvature approaching z_c — critical slowing.
func (m *Model) gradient(z float64) float64 {
	g := m.cfg.WellGain *
		(z - m.wells[0]) * (z - m.cfg.Boundary1) *
		(z - m.wells[1]) * (z - m.cfg.Critical) *
		(z - m.wells[2])
	return g * m.slowing(z)
}

// slowing returns the gradient attenuation factor near the critical point:
// 0 at z_c, 1 beyond SlowingRadius, smooth in between.
func (m *Model) slowing(z float64) float64 {
	d := math.Abs(z-m.cfg.Critical) / m.cfg.SlowingRadius
	if d >= 1 {
		return 1
	}
	return d * d * (3 - 2*d)
}

// drift is the full right-hand side.
func (m *Model) drift(z, forcing float64) float64 {
	return -m.gradient(z) + forcing
}

// #endregion gradient

// #region step

// substepBudget bounds the adaptive loop; exceeding it means the dynamics
// demanded more resolution than the configuration allows.
const substepBudget = 100000

// Step advances the phase by dt seconds under the given forcing. The
// integrator is bounded explicit: each substep moves z by at most
// MaxSubstepDelta, the substep size shrinks where the drift is steep, and
// the gradient attenuation near z_c shrinks the effective step there too.
// Boundaries act as hard walls; z is clamped to [0,1] every substep.
//
// Step(s, 0, 0) returns s unchanged.
func (m *Model) Step(cur PhaseState, forcing, dt float64) (PhaseState, error) {
	if dt == 0 {
		return cur, nil
	}
	if math.IsNaN(forcing) || math.IsInf(forcing, 0) {
		return PhaseState{}, &fault.InstabilityError{Z: cur.Z, Forcing: forcing, DT: dt, Reason: "non-finite forcing"}
	}
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		return PhaseState{}, &fault.InstabilityError{Z: cur.Z, Forcing: forcing, DT: dt, Reason: "invalid dt"}
	}

	z := cur.Z
	remaining := dt
	steps := 0
	for remaining > 0 {
		g := m.drift(z, forcing)
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return PhaseState{}, &fault.InstabilityError{Z: z, Forcing: forcing, DT: dt, Reason: "non-finite drift"}
		}

		h := remaining
		if h > m.cfg.MaxDT {
			h = m.cfg.MaxDT
		}
		if ag := math.Abs(g); ag*h > m.cfg.MaxSubstepDelta {
			h = m.cfg.MaxSubstepDelta / ag
		}

		z += g * h
		if math.IsNaN(z) || math.IsInf(z, 0) {
			return PhaseState{}, &fault.InstabilityError{Z: z, Forcing: forcing, DT: dt, Reason: "non-finite z"}
		}
		if z < -m.cfg.Tolerance || z > 1+m.cfg.Tolerance {
			// A capped substep cannot legitimately jump past the walls by
			// more than the tolerance unless the configuration is degenerate.
			if z < -m.cfg.MaxSubstepDelta || z > 1+m.cfg.MaxSubstepDelta {
				return PhaseState{}, &fault.InstabilityError{Z: z, Forcing: forcing, DT: dt, Reason: "z escaped bounds"}
			}
		}
		z = clamp01(z)

		remaining -= h
		steps++
		if steps > substepBudget {
			return PhaseState{}, &fault.InstabilityError{Z: z, Forcing: forcing, DT: dt, Reason: "substep budget exhausted"}
		}
	}

	return PhaseState{
		Z:         z,
		Regime:    m.ClassifyRegime(z),
		Velocity:  (z - cur.Z) / dt,
		Timestamp: cur.Timestamp.Add(time.Duration(dt * float64(time.Second))),
	}, nil
}

// clamp01 restricts v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion step
