// Package replay runs recorded telemetry through a fresh engine and
// checks that the trajectory reproduces bit for bit. Fixtures capture the
// inputs plus the expected snapshot stream; any divergence means the
// pipeline stopped being deterministic.
package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kestrelops/cascade/internal/engine"
	"github.com/kestrelops/cascade/internal/telemetry"
)

// #region fixture

// FixtureSample is one recorded input.
type FixtureSample struct {
	Timestamp time.Time          `json:"timestamp"`
	DT        float64            `json:"dt"`
	Raw       map[string]float64 `json:"raw"`
}

// FixtureState is the subset of a snapshot the fixture pins down. IDs are
// derived from seq, so pinning seq pins the ID too.
type FixtureState struct {
	Seq       uint64   `json:"seq"`
	Z         float64  `json:"z"`
	Regime    string   `json:"regime"`
	Composite float64  `json:"composite"`
	Risk      *float64 `json:"risk"`
}

// Fixture is a recorded run: the engine knobs that shaped it, the inputs,
// and the expected trajectory.
type Fixture struct {
	Name     string          `json:"name"`
	Seed     int64           `json:"seed"`
	Noise    float64         `json:"noise_amplitude"`
	InitialZ float64         `json:"initial_z"`
	Samples  []FixtureSample `json:"samples"`
	Expected []FixtureState  `json:"expected"`
}

// LoadFixture reads a fixture from a JSON file.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(f.Samples) == 0 {
		return Fixture{}, fmt.Errorf("fixture %s: no samples", path)
	}
	return f, nil
}

// WriteFixture saves a fixture as indented JSON.
func WriteFixture(path string, f Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// Sample converts one recorded input to the engine's sample type.
func (fs FixtureSample) Sample() telemetry.Sample {
	raw := make(map[telemetry.Dimension]float64, len(fs.Raw))
	for k, v := range fs.Raw {
		raw[telemetry.Dimension(k)] = v
	}
	return telemetry.Sample{Raw: raw, Timestamp: fs.Timestamp, DT: fs.DT}
}

// Pin extracts the fixture view of a snapshot.
func Pin(st engine.SystemState) FixtureState {
	return FixtureState{
		Seq:       st.Seq,
		Z:         st.Phase.Z,
		Regime:    string(st.Phase.Regime),
		Composite: st.Burden.Composite,
		Risk:      st.Signal.Risk,
	}
}

// #endregion fixture
