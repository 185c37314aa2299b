// Package engine runs the full ingest pipeline: calibrate telemetry,
// aggregate burden, advance the phase, and analyze cascade risk. One
// SystemState out per sample in.
package engine

import (
	"time"

	"github.com/kestrelops/cascade/internal/burden"
	"github.com/kestrelops/cascade/internal/fault"
	"github.com/kestrelops/cascade/internal/phase"
	"github.com/kestrelops/cascade/internal/resonance"
)

// #region system-state

// SystemState is the immutable snapshot handed to collaborators after each
// ingest. Fully self-describing; no engine internals are needed to
// interpret it.
type SystemState struct {
	ID        string
	Seq       uint64
	Phase     phase.PhaseState
	Burden    burden.BurdenVector
	Signal    resonance.CascadeSignal
	Profile   *resonance.ResonanceProfile
	Timestamp time.Time
}

// #endregion system-state

// #region config

// Config bundles the three component configs with the coupling and
// determinism knobs.
type Config struct {
	Phase     phase.Config
	Burden    burden.Config
	Resonance resonance.Config

	// Forcing derived per sample: ForcingGain·(composite − ForcingBias),
	// plus seeded Gaussian noise of NoiseAmplitude when non-zero.
	ForcingGain    float64
	ForcingBias    float64
	NoiseAmplitude float64
	Seed           int64

	InitialZ  float64
	DefaultDT float64 // applied when a sample omits dt
}

// DefaultConfig wires the component defaults with a burden-driven forcing
// coupling: composite above 0.5 pushes the phase upward.
func DefaultConfig() Config {
	return Config{
		Phase:          phase.DefaultConfig(),
		Burden:         burden.DefaultConfig(),
		Resonance:      resonance.DefaultConfig(),
		ForcingGain:    0.4,
		ForcingBias:    0.5,
		NoiseAmplitude: 0,
		Seed:           1,
		InitialZ:       0.2,
		DefaultDT:      1.0,
	}
}

// Validate cross-checks the bundle. Component configs validate themselves
// at construction; this covers the coupling parameters and the shared
// critical point.
func (c Config) Validate() error {
	if c.InitialZ < 0 || c.InitialZ > 1 {
		return fault.Configf("engine.initial_z", "must be in [0,1], got %g", c.InitialZ)
	}
	if c.DefaultDT <= 0 {
		return fault.Configf("engine.default_dt", "must be positive, got %g", c.DefaultDT)
	}
	if c.NoiseAmplitude < 0 {
		return fault.Configf("engine.noise_amplitude", "must be non-negative, got %g", c.NoiseAmplitude)
	}
	if c.Resonance.Critical != c.Phase.Critical {
		return fault.Configf("engine.critical", "phase z_c %g and resonance z_c %g disagree",
			c.Phase.Critical, c.Resonance.Critical)
	}
	return nil
}

// #endregion config
