package replay

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kestrelops/cascade/internal/engine"
	"github.com/kestrelops/cascade/internal/telemetry"
)

func testFixture(n int) Fixture {
	f := Fixture{
		Name:     "synthetic-ramp",
		Seed:     42,
		Noise:    0.01,
		InitialZ: 0.25,
	}
	for i := 0; i < n; i++ {
		raw := make(map[string]float64, telemetry.DimensionCount)
		for _, d := range telemetry.Dimensions {
			raw[string(d)] = 0.3 + 0.2*float64(i%5)/5
		}
		// Wide-domain dims stay inside their calibration ranges.
		raw[string(telemetry.DimQueueDepth)] = 40 + float64(i)
		raw[string(telemetry.DimLatencyDrift)] = 0.5
		raw[string(telemetry.DimChurn)] = 3
		f.Samples = append(f.Samples, FixtureSample{
			Timestamp: time.Unix(int64(1000+i), 0).UTC(),
			DT:        1,
			Raw:       raw,
		})
	}
	return f
}

func TestRecordThenVerify(t *testing.T) {
	cfg := engine.DefaultConfig()
	f, err := Record(cfg, testFixture(30))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(f.Expected) != 30 {
		t.Fatalf("expected states %d, want 30", len(f.Expected))
	}

	div, err := Verify(cfg, f)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if div != nil {
		t.Fatalf("recorded fixture did not reproduce: %s", div)
	}
}

func TestVerifyDetectsTamperedTrajectory(t *testing.T) {
	cfg := engine.DefaultConfig()
	f, err := Record(cfg, testFixture(10))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	f.Expected[7].Z += 1e-9

	div, err := Verify(cfg, f)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if div == nil {
		t.Fatal("tampered fixture verified clean")
	}
	if div.Index != 7 {
		t.Fatalf("divergence at %d, want 7", div.Index)
	}
}

func TestVerifyDetectsSeedChange(t *testing.T) {
	cfg := engine.DefaultConfig()
	f, err := Record(cfg, testFixture(25))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	f.Seed = 43

	div, err := Verify(cfg, f)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if div == nil {
		t.Fatal("seed change went unnoticed")
	}
}

func TestCheckDeterminism(t *testing.T) {
	cfg := engine.DefaultConfig()
	if err := CheckDeterminism(cfg, testFixture(40)); err != nil {
		t.Fatalf("determinism check: %v", err)
	}
}

func TestFixtureFileRoundtrip(t *testing.T) {
	cfg := engine.DefaultConfig()
	f, err := Record(cfg, testFixture(12))
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := WriteFixture(path, f); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(f, got); diff != "" {
		t.Fatalf("fixture roundtrip mismatch (-want +got):\n%s", diff)
	}

	div, err := Verify(cfg, got)
	if err != nil {
		t.Fatalf("verify loaded: %v", err)
	}
	if div != nil {
		t.Fatalf("loaded fixture diverged: %s", div)
	}
}

func TestLoadFixtureRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := WriteFixture(path, Fixture{Name: "empty"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("empty fixture accepted")
	}
}
