// Package trajectory summarizes a stored snapshot run: regime occupancy,
// burden statistics, and risk peaks over a sequence range.
package trajectory

import (
	"fmt"
	"math"

	"github.com/kestrelops/cascade/internal/engine"
	"github.com/kestrelops/cascade/internal/phase"
	"github.com/kestrelops/cascade/internal/snapshot"
)

// #region types

// Summary condenses one run of snapshots.
type Summary struct {
	Count     int
	FirstSeq  uint64
	LastSeq   uint64
	NetZDrift float64

	Occupancy   map[phase.Regime]int
	Transitions int

	CompositeMin  float64
	CompositeMean float64
	CompositeMax  float64

	PeakRisk    float64
	PeakRiskSeq uint64
	RiskSamples int

	MeanCoherence float64
}

// #endregion types

// #region summarize

// Summarize computes the summary over states in order. An empty slice is
// an error; callers decide what an empty run means.
func Summarize(states []engine.SystemState) (Summary, error) {
	if len(states) == 0 {
		return Summary{}, fmt.Errorf("summarize: empty run")
	}

	s := Summary{
		Count:        len(states),
		FirstSeq:     states[0].Seq,
		LastSeq:      states[len(states)-1].Seq,
		NetZDrift:    states[len(states)-1].Phase.Z - states[0].Phase.Z,
		Occupancy:    make(map[phase.Regime]int, len(phase.Regimes)),
		CompositeMin: math.Inf(1),
		CompositeMax: math.Inf(-1),
	}

	var compositeSum, coherenceSum float64
	var coherenceN int
	for i, st := range states {
		s.Occupancy[st.Phase.Regime]++
		if i > 0 && st.Phase.Regime != states[i-1].Phase.Regime {
			s.Transitions++
		}

		c := st.Burden.Composite
		compositeSum += c
		if c < s.CompositeMin {
			s.CompositeMin = c
		}
		if c > s.CompositeMax {
			s.CompositeMax = c
		}

		if st.Signal.Risk != nil {
			s.RiskSamples++
			if *st.Signal.Risk > s.PeakRisk {
				s.PeakRisk = *st.Signal.Risk
				s.PeakRiskSeq = st.Seq
			}
		}
		if st.Profile != nil {
			coherenceSum += st.Profile.Coherence
			coherenceN++
		}
	}

	s.CompositeMean = compositeSum / float64(len(states))
	if coherenceN > 0 {
		s.MeanCoherence = coherenceSum / float64(coherenceN)
	}
	return s, nil
}

// FromStore loads the range starting at fromSeq and summarizes it.
func FromStore(store *snapshot.Store, fromSeq uint64) (Summary, error) {
	states, err := store.Range(fromSeq, 0)
	if err != nil {
		return Summary{}, fmt.Errorf("load run: %w", err)
	}
	return Summarize(states)
}

// #endregion summarize

// #region render

// Render formats the summary for terminal output.
func (s Summary) Render() string {
	out := fmt.Sprintf("snapshots %d (seq %d..%d), net z drift %+.4f\n",
		s.Count, s.FirstSeq, s.LastSeq, s.NetZDrift)
	out += "occupancy:"
	for _, r := range phase.Regimes {
		out += fmt.Sprintf(" %s=%d", r, s.Occupancy[r])
	}
	out += fmt.Sprintf(", transitions %d\n", s.Transitions)
	out += fmt.Sprintf("composite min/mean/max %.3f/%.3f/%.3f\n",
		s.CompositeMin, s.CompositeMean, s.CompositeMax)
	if s.RiskSamples > 0 {
		out += fmt.Sprintf("peak risk %.3f at seq %d (%d scored), mean coherence %.3f\n",
			s.PeakRisk, s.PeakRiskSeq, s.RiskSamples, s.MeanCoherence)
	} else {
		out += "risk never scored (window never filled)\n"
	}
	return out
}

// #endregion render
