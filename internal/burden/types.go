// Package burden normalizes the eight telemetry dimensions and folds them
// into a single composite score under regime-dependent weights.
package burden

import (
	"github.com/kestrelops/cascade/internal/phase"
	"github.com/kestrelops/cascade/internal/telemetry"
)

// #region calibration

// Calibration declares one dimension's input domain and the sharpness of
// its saturating ramp. Raw values map through a scaled tanh:
//
//	u = (raw - Lo) / (Hi - Lo)
//	norm = tanh(Sharpness·u) / tanh(Sharpness)
//
// Monotonic, saturating, and exactly 0/1 at the domain edges. Raw values
// outside [Lo, Hi] are a domain violation, not something to clamp.
type Calibration struct {
	Lo        float64
	Hi        float64
	Sharpness float64
}

// #endregion calibration

// #region weights

// WeightTable maps each dimension to its weight for one regime.
// Valid tables carry all eight dimensions and sum to 1 within WeightEpsilon.
type WeightTable map[telemetry.Dimension]float64

// WeightEpsilon is the allowed slack on a weight table's sum.
const WeightEpsilon = 1e-6

// #endregion weights

// #region config

// Config declares calibrations for all eight dimensions and one weight
// table per regime. Validated once, at aggregator construction.
type Config struct {
	Calibrations map[telemetry.Dimension]Calibration
	Weights      map[phase.Regime]WeightTable
}

// DefaultConfig returns calibrations over operational domains and weight
// tables that shift emphasis as the system moves up through the regimes:
// resource pressure dominates in R1, queueing and latency in R2, error and
// churn signals in R3.
func DefaultConfig() Config {
	return Config{
		Calibrations: map[telemetry.Dimension]Calibration{
			telemetry.DimCPULoad:        {Lo: 0, Hi: 1, Sharpness: 1.5},
			telemetry.DimMemoryPressure: {Lo: 0, Hi: 1, Sharpness: 1.5},
			telemetry.DimIOWait:         {Lo: 0, Hi: 1, Sharpness: 2.0},
			telemetry.DimQueueDepth:     {Lo: 0, Hi: 1000, Sharpness: 3.0},
			telemetry.DimErrorRate:      {Lo: 0, Hi: 1, Sharpness: 2.5},
			telemetry.DimLatencyDrift:   {Lo: 0, Hi: 10, Sharpness: 2.0},
			telemetry.DimSaturation:     {Lo: 0, Hi: 1, Sharpness: 1.5},
			telemetry.DimChurn:          {Lo: 0, Hi: 100, Sharpness: 2.0},
		},
		Weights: map[phase.Regime]WeightTable{
			phase.RegimeR1: {
				telemetry.DimCPULoad:        0.20,
				telemetry.DimMemoryPressure: 0.20,
				telemetry.DimIOWait:         0.15,
				telemetry.DimQueueDepth:     0.10,
				telemetry.DimErrorRate:      0.10,
				telemetry.DimLatencyDrift:   0.10,
				telemetry.DimSaturation:     0.10,
				telemetry.DimChurn:          0.05,
			},
			phase.RegimeR2: {
				telemetry.DimCPULoad:        0.10,
				telemetry.DimMemoryPressure: 0.10,
				telemetry.DimIOWait:         0.10,
				telemetry.DimQueueDepth:     0.20,
				telemetry.DimErrorRate:      0.10,
				telemetry.DimLatencyDrift:   0.20,
				telemetry.DimSaturation:     0.15,
				telemetry.DimChurn:          0.05,
			},
			phase.RegimeR3: {
				telemetry.DimCPULoad:        0.05,
				telemetry.DimMemoryPressure: 0.05,
				telemetry.DimIOWait:         0.05,
				telemetry.DimQueueDepth:     0.15,
				telemetry.DimErrorRate:      0.25,
				telemetry.DimLatencyDrift:   0.15,
				telemetry.DimSaturation:     0.15,
				telemetry.DimChurn:          0.15,
			},
		},
	}
}

// #endregion config

// #region burden-vector

// BurdenVector is the immutable aggregation result: calibrated dimensions
// in canonical order, the composite score, and the weights that produced it.
type BurdenVector struct {
	Dimensions [telemetry.DimensionCount]float64
	Composite  float64
	Regime     phase.Regime
	Weights    WeightTable
}

// #endregion burden-vector
