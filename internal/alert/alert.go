// Package alert turns snapshots into threshold crossings. It is a pure
// evaluation over one SystemState; persistence and delivery live with
// the caller.
package alert

import (
	"fmt"
	"time"

	"github.com/kestrelops/cascade/internal/engine"
	"github.com/kestrelops/cascade/internal/fault"
)

// #region types

// Severity orders alert levels.
type Severity string

const (
	SeverityWarn     Severity = "warn"
	SeverityCritical Severity = "critical"
)

// Alert is one threshold crossing observed on a snapshot.
type Alert struct {
	Seq       uint64
	Severity  Severity
	Metric    string
	Value     float64
	Threshold float64
	Message   string
	Timestamp time.Time
}

// Config holds the alert thresholds. A critical threshold must not sit
// below its warn threshold.
type Config struct {
	CompositeWarn     float64
	CompositeCritical float64
	RiskWarn          float64
	RiskCritical      float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		CompositeWarn:     0.70,
		CompositeCritical: 0.90,
		RiskWarn:          0.60,
		RiskCritical:      0.85,
	}
}

// Validate checks threshold ordering and ranges.
func (c Config) Validate() error {
	check := func(field string, warn, crit float64) error {
		if warn < 0 || warn > 1 || crit < 0 || crit > 1 {
			return fault.Configf(field, "thresholds must lie in [0,1], got warn=%g crit=%g", warn, crit)
		}
		if crit < warn {
			return fault.Configf(field, "critical threshold %g below warn threshold %g", crit, warn)
		}
		return nil
	}
	if err := check("composite", c.CompositeWarn, c.CompositeCritical); err != nil {
		return err
	}
	return check("risk", c.RiskWarn, c.RiskCritical)
}

// #endregion types

// #region evaluate

// Evaluator applies the thresholds to snapshots.
type Evaluator struct {
	cfg Config
}

// NewEvaluator validates the thresholds and returns an evaluator.
func NewEvaluator(cfg Config) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{cfg: cfg}, nil
}

// Evaluate returns every threshold crossed by st, at most one alert per
// metric at the highest severity crossed. A null risk is never evaluated.
func (ev *Evaluator) Evaluate(st engine.SystemState) []Alert {
	var out []Alert

	if a, ok := cross("composite", st.Burden.Composite, ev.cfg.CompositeWarn, ev.cfg.CompositeCritical); ok {
		a.Seq = st.Seq
		a.Timestamp = st.Timestamp
		out = append(out, a)
	}
	if st.Signal.Risk != nil {
		if a, ok := cross("risk", *st.Signal.Risk, ev.cfg.RiskWarn, ev.cfg.RiskCritical); ok {
			a.Seq = st.Seq
			a.Timestamp = st.Timestamp
			out = append(out, a)
		}
	}
	return out
}

func cross(metric string, value, warn, crit float64) (Alert, bool) {
	switch {
	case value >= crit:
		return Alert{
			Severity:  SeverityCritical,
			Metric:    metric,
			Value:     value,
			Threshold: crit,
			Message:   fmt.Sprintf("%s %.3f at or above critical threshold %.3f", metric, value, crit),
		}, true
	case value >= warn:
		return Alert{
			Severity:  SeverityWarn,
			Metric:    metric,
			Value:     value,
			Threshold: warn,
			Message:   fmt.Sprintf("%s %.3f at or above warn threshold %.3f", metric, value, warn),
		}, true
	}
	return Alert{}, false
}

// #endregion evaluate
