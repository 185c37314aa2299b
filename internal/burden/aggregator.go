package burden

import (
	"math"

	"github.com/kestrelops/cascade/internal/fault"
	"github.com/kestrelops/cascade/internal/phase"
	"github.com/kestrelops/cascade/internal/telemetry"
)

// #region aggregator

// Aggregator holds validated calibrations and weight tables. It is
// read-only after construction and safe for concurrent use.
type Aggregator struct {
	cal     [telemetry.DimensionCount]Calibration
	weights map[phase.Regime][telemetry.DimensionCount]float64
	tables  map[phase.Regime]WeightTable
}

// NewAggregator validates cfg: every canonical dimension calibrated with a
// non-degenerate domain, every regime weighted, each table carrying exactly
// the eight dimensions with non-negative weights summing to 1±1e-6.
func NewAggregator(cfg Config) (*Aggregator, error) {
	if len(cfg.Calibrations) != telemetry.DimensionCount {
		return nil, fault.Configf("burden.calibrations", "expected %d dimensions, got %d",
			telemetry.DimensionCount, len(cfg.Calibrations))
	}

	a := &Aggregator{
		weights: make(map[phase.Regime][telemetry.DimensionCount]float64, len(phase.Regimes)),
		tables:  make(map[phase.Regime]WeightTable, len(phase.Regimes)),
	}

	for i, d := range telemetry.Dimensions {
		c, ok := cfg.Calibrations[d]
		if !ok {
			return nil, fault.Configf("burden.calibrations", "missing dimension %q", d)
		}
		if !(c.Hi > c.Lo) {
			return nil, fault.Configf("burden.calibrations", "%s: degenerate domain [%g, %g]", d, c.Lo, c.Hi)
		}
		if c.Sharpness <= 0 {
			return nil, fault.Configf("burden.calibrations", "%s: sharpness must be positive, got %g", d, c.Sharpness)
		}
		a.cal[i] = c
	}

	for _, r := range phase.Regimes {
		table, ok := cfg.Weights[r]
		if !ok {
			return nil, fault.Configf("burden.weights", "missing regime %s", r)
		}
		if len(table) != telemetry.DimensionCount {
			return nil, fault.Configf("burden.weights", "%s: expected %d dimensions, got %d",
				r, telemetry.DimensionCount, len(table))
		}
		var vec [telemetry.DimensionCount]float64
		sum := 0.0
		for i, d := range telemetry.Dimensions {
			w, ok := table[d]
			if !ok {
				return nil, fault.Configf("burden.weights", "%s: missing dimension %q", r, d)
			}
			if w < 0 {
				return nil, fault.Configf("burden.weights", "%s: negative weight %g for %q", r, w, d)
			}
			vec[i] = w
			sum += w
		}
		if math.Abs(sum-1) > WeightEpsilon {
			return nil, fault.Configf("burden.weights", "%s: weights sum to %g, want 1±%g", r, sum, WeightEpsilon)
		}
		a.weights[r] = vec

		copied := make(WeightTable, len(table))
		for d, w := range table {
			copied[d] = w
		}
		a.tables[r] = copied
	}

	return a, nil
}

// #endregion aggregator

// #region normalize

// Normalize calibrates each raw dimension onto [0,1]. A raw value outside
// its declared domain returns an InputError; nothing is clamped across a
// domain violation.
func (a *Aggregator) Normalize(sample telemetry.Sample) ([telemetry.DimensionCount]float64, error) {
	var norm [telemetry.DimensionCount]float64
	if err := sample.Validate(); err != nil {
		return norm, err
	}

	raw := sample.Vector()
	for i, d := range telemetry.Dimensions {
		c := a.cal[i]
		v := raw[i]
		if math.IsNaN(v) || v < c.Lo || v > c.Hi {
			return [telemetry.DimensionCount]float64{}, &fault.InputError{
				Dimension: string(d), Value: v, Lo: c.Lo, Hi: c.Hi,
			}
		}
		u := (v - c.Lo) / (c.Hi - c.Lo)
		n := math.Tanh(c.Sharpness*u) / math.Tanh(c.Sharpness)
		// In-domain float fuzz only.
		if n < 0 {
			n = 0
		}
		if n > 1 {
			n = 1
		}
		norm[i] = n
	}
	return norm, nil
}

// #endregion normalize

// #region aggregate

// Aggregate computes the weighted composite for the active regime.
// Inputs in [0,1] and a valid weight table guarantee composite in [0,1].
func (a *Aggregator) Aggregate(norm [telemetry.DimensionCount]float64, regime phase.Regime) BurdenVector {
	w := a.weights[regime]
	composite := 0.0
	for i := range norm {
		composite += norm[i] * w[i]
	}
	if composite < 0 {
		composite = 0
	}
	if composite > 1 {
		composite = 1
	}
	return BurdenVector{
		Dimensions: norm,
		Composite:  composite,
		Regime:     regime,
		Weights:    a.tables[regime],
	}
}

// #endregion aggregate
