package trajectory

import (
	"strings"
	"testing"
	"time"

	"github.com/kestrelops/cascade/internal/engine"
	"github.com/kestrelops/cascade/internal/phase"
	"github.com/kestrelops/cascade/internal/resonance"
)

func mkState(seq uint64, z float64, regime phase.Regime, composite float64, risk *float64) engine.SystemState {
	var st engine.SystemState
	st.Seq = seq
	st.Timestamp = time.Unix(int64(1000+seq), 0).UTC()
	st.Phase = phase.PhaseState{Z: z, Regime: regime, Timestamp: st.Timestamp}
	st.Burden.Composite = composite
	st.Burden.Regime = regime
	st.Signal.Risk = risk
	if risk != nil {
		st.Profile = &resonance.ResonanceProfile{Coherence: 0.5}
	}
	return st
}

func ptr(v float64) *float64 { return &v }

func TestSummarizeEmptyRunErrors(t *testing.T) {
	if _, err := Summarize(nil); err == nil {
		t.Fatal("empty run accepted")
	}
}

func TestSummarizeOccupancyAndTransitions(t *testing.T) {
	states := []engine.SystemState{
		mkState(1, 0.2, phase.RegimeR1, 0.3, nil),
		mkState(2, 0.3, phase.RegimeR1, 0.4, nil),
		mkState(3, 0.5, phase.RegimeR2, 0.5, ptr(0.2)),
		mkState(4, 0.6, phase.RegimeR2, 0.6, ptr(0.7)),
		mkState(5, 0.9, phase.RegimeR3, 0.8, ptr(0.5)),
	}

	s, err := Summarize(states)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.Count != 5 || s.FirstSeq != 1 || s.LastSeq != 5 {
		t.Fatalf("range wrong: %+v", s)
	}
	if s.Occupancy[phase.RegimeR1] != 2 || s.Occupancy[phase.RegimeR2] != 2 || s.Occupancy[phase.RegimeR3] != 1 {
		t.Fatalf("occupancy wrong: %+v", s.Occupancy)
	}
	if s.Transitions != 2 {
		t.Fatalf("transitions %d, want 2", s.Transitions)
	}
	if s.NetZDrift != 0.9-0.2 {
		t.Fatalf("net drift %g", s.NetZDrift)
	}
}

func TestSummarizeCompositeStats(t *testing.T) {
	states := []engine.SystemState{
		mkState(1, 0.2, phase.RegimeR1, 0.2, nil),
		mkState(2, 0.2, phase.RegimeR1, 0.4, nil),
		mkState(3, 0.2, phase.RegimeR1, 0.6, nil),
	}
	s, err := Summarize(states)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.CompositeMin != 0.2 || s.CompositeMax != 0.6 {
		t.Fatalf("min/max wrong: %+v", s)
	}
	if diff := s.CompositeMean - 0.4; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("mean %g, want 0.4", s.CompositeMean)
	}
}

func TestSummarizePeakRisk(t *testing.T) {
	states := []engine.SystemState{
		mkState(1, 0.2, phase.RegimeR1, 0.3, nil),
		mkState(2, 0.2, phase.RegimeR1, 0.3, ptr(0.4)),
		mkState(3, 0.2, phase.RegimeR1, 0.3, ptr(0.8)),
		mkState(4, 0.2, phase.RegimeR1, 0.3, ptr(0.6)),
	}
	s, err := Summarize(states)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.PeakRisk != 0.8 || s.PeakRiskSeq != 3 {
		t.Fatalf("peak risk %g at %d, want 0.8 at 3", s.PeakRisk, s.PeakRiskSeq)
	}
	if s.RiskSamples != 3 {
		t.Fatalf("risk samples %d, want 3", s.RiskSamples)
	}
	if s.MeanCoherence != 0.5 {
		t.Fatalf("mean coherence %g, want 0.5", s.MeanCoherence)
	}
}

func TestRenderNeverScored(t *testing.T) {
	s, err := Summarize([]engine.SystemState{mkState(1, 0.2, phase.RegimeR1, 0.3, nil)})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !strings.Contains(s.Render(), "never scored") {
		t.Fatalf("render missing never-scored note:\n%s", s.Render())
	}
}
