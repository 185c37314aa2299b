package snapshot

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kestrelops/cascade/internal/engine"
	"github.com/kestrelops/cascade/internal/phase"
	"github.com/kestrelops/cascade/internal/resonance"
	"github.com/kestrelops/cascade/internal/telemetry"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testState(seq uint64, withRisk bool) engine.SystemState {
	ts := time.Unix(int64(1000+seq), 0).UTC()
	st := engine.SystemState{
		ID:        fmt.Sprintf("00000000-0000-0000-0000-%012d", seq),
		Seq:       seq,
		Timestamp: ts,
	}
	st.Phase = phase.PhaseState{Z: 0.3 + float64(seq)*0.01, Regime: phase.RegimeR1, Velocity: 0.01, Timestamp: ts}
	st.Burden.Composite = 0.42
	st.Burden.Regime = phase.RegimeR1
	for i := range st.Burden.Dimensions {
		st.Burden.Dimensions[i] = float64(i) / float64(telemetry.DimensionCount)
	}
	st.Signal = resonance.CascadeSignal{DistanceToCritical: 0.5, Trend: 0.002}
	if withRisk {
		r := 0.37
		st.Signal.Risk = &r
		st.Profile = &resonance.ResonanceProfile{DominantFrequency: 0.125, Coherence: 0.8, Amplitude: 0.1}
	}
	return st
}

func TestAppendLatestRoundtrip(t *testing.T) {
	s := newTestStore(t)

	want := testState(1, true)
	if err := s.Append(want); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := s.Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("roundtrip mismatch (-want +got):\n%s", diff)
	}
}

func TestNullRiskSurvivesRoundtrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.Append(testState(1, false)); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := s.Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.Signal.Risk != nil {
		t.Fatalf("risk should stay null, got %v", *got.Signal.Risk)
	}
	if got.Profile != nil {
		t.Fatal("profile should stay null")
	}
}

func TestRangeAndCount(t *testing.T) {
	s := newTestStore(t)

	for seq := uint64(1); seq <= 10; seq++ {
		if err := s.Append(testState(seq, seq >= 5)); err != nil {
			t.Fatalf("append %d: %v", seq, err)
		}
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 10 {
		t.Fatalf("count %d, want 10", n)
	}

	states, err := s.Range(4, 3)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(states) != 3 {
		t.Fatalf("range len %d, want 3", len(states))
	}
	for i, st := range states {
		if st.Seq != uint64(4+i) {
			t.Fatalf("range[%d].Seq = %d, want %d", i, st.Seq, 4+i)
		}
	}
}

func TestDuplicateSeqRejected(t *testing.T) {
	s := newTestStore(t)

	st := testState(1, false)
	if err := s.Append(st); err != nil {
		t.Fatalf("append: %v", err)
	}
	st.ID = st.ID + "x"
	if err := s.Append(st); err == nil {
		t.Fatal("duplicate seq accepted")
	}
}

func TestAlertLog(t *testing.T) {
	s := newTestStore(t)

	recs := []AlertRecord{
		{Seq: 3, Severity: "warn", Metric: "composite", Value: 0.72, Threshold: 0.7, Message: "composite above warn threshold", CreatedAt: time.Unix(1003, 0).UTC()},
		{Seq: 7, Severity: "critical", Metric: "risk", Value: 0.91, Threshold: 0.85, Message: "risk above critical threshold", CreatedAt: time.Unix(1007, 0).UTC()},
	}
	for _, a := range recs {
		if err := s.LogAlert(a); err != nil {
			t.Fatalf("log alert: %v", err)
		}
	}

	got, err := s.Alerts(10)
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("alert count %d, want 2", len(got))
	}
	// Newest first.
	if got[0].Seq != 7 || got[1].Seq != 3 {
		t.Fatalf("alert order wrong: %+v", got)
	}
	if diff := cmp.Diff(recs[1], got[0]); diff != "" {
		t.Fatalf("alert mismatch (-want +got):\n%s", diff)
	}
}

func TestExportImportRoundtrip(t *testing.T) {
	src := newTestStore(t)
	for seq := uint64(1); seq <= 6; seq++ {
		if err := src.Append(testState(seq, seq > 3)); err != nil {
			t.Fatalf("append %d: %v", seq, err)
		}
	}

	var buf bytes.Buffer
	n, err := src.Export(&buf, 1)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 6 {
		t.Fatalf("exported %d, want 6", n)
	}

	dst := newTestStore(t)
	m, err := dst.Import(&buf)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if m != 6 {
		t.Fatalf("imported %d, want 6", m)
	}

	want, err := src.Range(1, 0)
	if err != nil {
		t.Fatalf("src range: %v", err)
	}
	got, err := dst.Range(1, 0)
	if err != nil {
		t.Fatalf("dst range: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("archive roundtrip mismatch (-src +dst):\n%s", diff)
	}
}

func TestExportFromSeq(t *testing.T) {
	s := newTestStore(t)
	for seq := uint64(1); seq <= 5; seq++ {
		if err := s.Append(testState(seq, false)); err != nil {
			t.Fatalf("append %d: %v", seq, err)
		}
	}

	var buf bytes.Buffer
	n, err := s.Export(&buf, 4)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 2 {
		t.Fatalf("exported %d, want 2", n)
	}
	states, err := ReadArchive(&buf)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if len(states) != 2 || states[0].Seq != 4 {
		t.Fatalf("unexpected archive contents: %+v", states)
	}
}
