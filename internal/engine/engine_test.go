package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kestrelops/cascade/internal/burden"
	"github.com/kestrelops/cascade/internal/fault"
	"github.com/kestrelops/cascade/internal/phase"
	"github.com/kestrelops/cascade/internal/telemetry"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func testSample(v float64, seq int) telemetry.Sample {
	raw := make(map[telemetry.Dimension]float64, telemetry.DimensionCount)
	for _, d := range telemetry.Dimensions {
		raw[d] = v
	}
	return telemetry.Sample{
		Raw:       raw,
		Timestamp: time.Unix(int64(seq), 0).UTC(),
		DT:        1,
	}
}

func TestIngestProducesSequencedStates(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	for i := 1; i <= 5; i++ {
		st, err := e.Ingest(testSample(0.3, i))
		if err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
		if st.Seq != uint64(i) {
			t.Fatalf("seq %d, want %d", st.Seq, i)
		}
		if st.ID == "" {
			t.Fatal("empty snapshot ID")
		}
		if st.Phase.Z < 0 || st.Phase.Z > 1 {
			t.Fatalf("z out of range: %g", st.Phase.Z)
		}
		if st.Burden.Composite < 0 || st.Burden.Composite > 1 {
			t.Fatalf("composite out of range: %g", st.Burden.Composite)
		}
	}
}

func TestRiskNullUntilWindowFills(t *testing.T) {
	cfg := DefaultConfig()
	e := newTestEngine(t, cfg)

	w := cfg.Resonance.WindowSize
	for i := 1; i <= w+5; i++ {
		st, err := e.Ingest(testSample(0.3, i))
		if err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
		if i < w {
			if st.Signal.Risk != nil || st.Profile != nil {
				t.Fatalf("ingest %d: risk/profile present before window full", i)
			}
		} else {
			if st.Signal.Risk == nil || st.Profile == nil {
				t.Fatalf("ingest %d: risk/profile missing after window full", i)
			}
		}
	}
}

func TestReplayDeterminism(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NoiseAmplitude = 0.02
	cfg.Seed = 42

	run := func() []SystemState {
		e := newTestEngine(t, cfg)
		out := make([]SystemState, 0, 60)
		for i := 1; i <= 60; i++ {
			v := 0.2 + 0.3*float64(i%7)/7
			st, err := e.Ingest(testSample(v, i))
			if err != nil {
				t.Fatalf("ingest %d: %v", i, err)
			}
			out = append(out, st)
		}
		return out
	}

	a, b := run(), run()
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("replay diverged (-first +second):\n%s", diff)
	}
}

func TestSeedChangesNoisyTrajectory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NoiseAmplitude = 0.05

	run := func(seed int64) float64 {
		cfg.Seed = seed
		e := newTestEngine(t, cfg)
		var last SystemState
		for i := 1; i <= 30; i++ {
			st, err := e.Ingest(testSample(0.4, i))
			if err != nil {
				t.Fatalf("ingest %d: %v", i, err)
			}
			last = st
		}
		return last.Phase.Z
	}

	if run(1) == run(2) {
		t.Fatal("different seeds produced identical noisy trajectories")
	}
}

func TestInputErrorLeavesWindowUntouched(t *testing.T) {
	cfg := DefaultConfig()
	e := newTestEngine(t, cfg)

	for i := 1; i <= 3; i++ {
		if _, err := e.Ingest(testSample(0.3, i)); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}
	before := e.Latest()

	bad := testSample(0.3, 4)
	bad.Raw[telemetry.DimCPULoad] = 1.5 // outside [0,1] domain
	_, err := e.Ingest(bad)
	var ie *fault.InputError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InputError, got %v", err)
	}

	if got := e.Latest(); got != before {
		t.Fatal("latest state changed on rejected input")
	}

	// A corrected resubmission continues the sequence.
	st, err := e.Ingest(testSample(0.3, 4))
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if st.Seq != 4 {
		t.Fatalf("seq after rejection %d, want 4", st.Seq)
	}
}

func TestMalformedSampleRecoverable(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	for i := 1; i <= 3; i++ {
		if _, err := e.Ingest(testSample(0.3, i)); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}
	before := e.Latest()

	short := testSample(0.3, 4)
	delete(short.Raw, telemetry.DimSaturation)
	_, err := e.Ingest(short)
	var se *fault.SampleError
	if !errors.As(err, &se) {
		t.Fatalf("expected SampleError, got %v", err)
	}
	// Mid-stream errors must never carry the construction-only class.
	var ce *fault.ConfigError
	if errors.As(err, &ce) {
		t.Fatal("malformed sample surfaced as ConfigError mid-stream")
	}

	if got := e.Latest(); got != before {
		t.Fatal("latest state changed on malformed sample")
	}
	st, err := e.Ingest(testSample(0.3, 4))
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if st.Seq != 4 {
		t.Fatalf("seq after malformed sample %d, want 4", st.Seq)
	}
}

func TestZeroDTUsesDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultDT = 2.5
	e := newTestEngine(t, cfg)

	s := testSample(0.3, 1)
	s.DT = 0
	st, err := e.Ingest(s)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	// Phase time starts at the epoch and advances by the substituted dt.
	if got := st.Phase.Timestamp.Sub(time.Unix(0, 0).UTC()); got != 2500*time.Millisecond {
		t.Fatalf("phase advanced by %v, want 2.5s", got)
	}
}

func TestConfigErrorsBeforeFirstIngest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Burden.Weights[phase.RegimeR1][telemetry.DimChurn] = 0 // sum < 1

	_, err := New(cfg)
	var ce *fault.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestCriticalMismatchRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resonance.Critical = 0.9
	if _, err := New(cfg); err == nil {
		t.Fatal("accepted disagreeing critical points")
	}
}

func TestApplyWeightsSwapsAggregator(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	if _, err := e.Ingest(testSample(0.3, 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// All weight on cpu_load in every regime.
	weights := make(map[phase.Regime]burden.WeightTable, len(phase.Regimes))
	for _, r := range phase.Regimes {
		wt := make(burden.WeightTable, telemetry.DimensionCount)
		for _, d := range telemetry.Dimensions {
			wt[d] = 0
		}
		wt[telemetry.DimCPULoad] = 1
		weights[r] = wt
	}
	if err := e.ApplyWeights(weights); err != nil {
		t.Fatalf("apply weights: %v", err)
	}

	s := testSample(0.2, 2)
	s.Raw[telemetry.DimCPULoad] = 0.9
	st, err := e.Ingest(s)
	if err != nil {
		t.Fatalf("ingest after swap: %v", err)
	}
	if st.Seq != 2 {
		t.Fatalf("seq %d, want 2", st.Seq)
	}
	// Composite now tracks cpu_load alone, so it must sit well above the
	// 0.2 the other dims would give.
	if st.Burden.Composite < 0.5 {
		t.Fatalf("composite %g does not reflect swapped weights", st.Burden.Composite)
	}

	// A bad table is rejected and leaves the old weights in force.
	bad := map[phase.Regime]burden.WeightTable{phase.RegimeR1: {telemetry.DimCPULoad: 0.5}}
	if err := e.ApplyWeights(bad); err == nil {
		t.Fatal("bad weight tables accepted")
	}
	if _, err := e.Ingest(testSample(0.2, 3)); err != nil {
		t.Fatalf("ingest after rejected swap: %v", err)
	}
}

func TestLatestNilBeforeIngest(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	if e.Latest() != nil {
		t.Fatal("latest should be nil before first ingest")
	}
}
