// Package resonance analyzes the rolling (phase, burden) history: dominant
// oscillation frequency, cross-dimension coherence, and the cascade-risk
// signal.
package resonance

import (
	"time"

	"github.com/kestrelops/cascade/internal/fault"
	"github.com/kestrelops/cascade/internal/telemetry"
)

// #region profile

// ResonanceProfile describes the dominant oscillation of the phase series
// over a full window. Present only once the window has filled.
type ResonanceProfile struct {
	DominantFrequency float64 // Hz; 0 when no oscillatory structure is found
	Coherence         float64 // Φ in [0,1]: how unified the 8 dimensions move
	Amplitude         float64 // RMS-derived oscillation amplitude, ≥ 0
}

// #endregion profile

// #region signal

// CascadeSignal is the per-ingest early-warning output. Risk is nil until
// the window fills — insufficient history, not an error.
type CascadeSignal struct {
	Risk               *float64
	DistanceToCritical float64
	Trend              float64
}

// #endregion signal

// #region config

// Config tunes the analyzer window and the risk blend.
type Config struct {
	WindowSize int     // samples in the sliding window
	Critical   float64 // z_c, shared with the phase model

	Epsilon    float64 // proximity softening: proximity = ε/(dist+ε)
	TrendScale float64 // trend magnitude that counts as "fully toward critical"

	ProximityWeight float64 // risk blend weights; must sum to 1
	TrendWeight     float64
	CoherenceWeight float64
}

// DefaultConfig returns the standard 20-sample window and risk blend.
func DefaultConfig() Config {
	return Config{
		WindowSize:      20,
		Critical:        0.867,
		Epsilon:         0.05,
		TrendScale:      0.01,
		ProximityWeight: 0.5,
		TrendWeight:     0.3,
		CoherenceWeight: 0.2,
	}
}

// Validate checks window size and blend weights.
func (c Config) Validate() error {
	if c.WindowSize < 4 {
		return fault.Configf("resonance.window_size", "must be at least 4, got %d", c.WindowSize)
	}
	if c.Critical <= 0 || c.Critical >= 1 {
		return fault.Configf("resonance.critical", "must be in (0,1), got %g", c.Critical)
	}
	if c.Epsilon <= 0 {
		return fault.Configf("resonance.epsilon", "must be positive, got %g", c.Epsilon)
	}
	if c.TrendScale <= 0 {
		return fault.Configf("resonance.trend_scale", "must be positive, got %g", c.TrendScale)
	}
	sum := c.ProximityWeight + c.TrendWeight + c.CoherenceWeight
	if c.ProximityWeight < 0 || c.TrendWeight < 0 || c.CoherenceWeight < 0 || sum <= 0 {
		return fault.Configf("resonance.risk_weights", "weights must be non-negative with positive sum")
	}
	if diff := sum - 1; diff > 1e-6 || diff < -1e-6 {
		return fault.Configf("resonance.risk_weights", "weights sum to %g, want 1", sum)
	}
	return nil
}

// #endregion config

// #region point

// point is one window entry.
type point struct {
	z         float64
	composite float64
	dims      [telemetry.DimensionCount]float64
	t         time.Time
	dt        float64
}

// #endregion point
