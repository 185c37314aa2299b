package replay

import (
	"fmt"

	"github.com/kestrelops/cascade/internal/engine"
)

// #region harness

// Divergence reports the first point where a replay left the expected
// trajectory.
type Divergence struct {
	Index    int
	Expected FixtureState
	Actual   FixtureState
}

func (d *Divergence) String() string {
	return fmt.Sprintf("diverged at step %d: expected seq=%d z=%.12g composite=%.12g, got seq=%d z=%.12g composite=%.12g",
		d.Index,
		d.Expected.Seq, d.Expected.Z, d.Expected.Composite,
		d.Actual.Seq, d.Actual.Z, d.Actual.Composite)
}

// Run executes the fixture inputs through a fresh engine built from cfg
// with the fixture's recorded knobs applied, returning the full snapshot
// stream.
func Run(cfg engine.Config, f Fixture) ([]engine.SystemState, error) {
	cfg.Seed = f.Seed
	cfg.NoiseAmplitude = f.Noise
	if f.InitialZ != 0 {
		cfg.InitialZ = f.InitialZ
	}

	e, err := engine.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	out := make([]engine.SystemState, 0, len(f.Samples))
	for i, fs := range f.Samples {
		st, err := e.Ingest(fs.Sample())
		if err != nil {
			return nil, fmt.Errorf("ingest sample %d: %w", i, err)
		}
		out = append(out, st)
	}
	return out, nil
}

// Verify replays the fixture and compares against its expected states
// bit for bit. A nil Divergence means the run reproduced.
func Verify(cfg engine.Config, f Fixture) (*Divergence, error) {
	states, err := Run(cfg, f)
	if err != nil {
		return nil, err
	}
	if len(states) != len(f.Expected) {
		return &Divergence{
			Index:    min(len(states), len(f.Expected)),
			Expected: FixtureState{Seq: uint64(len(f.Expected))},
			Actual:   FixtureState{Seq: uint64(len(states))},
		}, nil
	}
	for i, st := range states {
		got := Pin(st)
		want := f.Expected[i]
		if !equalState(got, want) {
			return &Divergence{Index: i, Expected: want, Actual: got}, nil
		}
	}
	return nil, nil
}

func equalState(a, b FixtureState) bool {
	if a.Seq != b.Seq || a.Z != b.Z || a.Regime != b.Regime || a.Composite != b.Composite {
		return false
	}
	if (a.Risk == nil) != (b.Risk == nil) {
		return false
	}
	if a.Risk != nil && *a.Risk != *b.Risk {
		return false
	}
	return true
}

// Record runs the fixture inputs and fills in Expected from the actual
// trajectory. Used to author new fixtures.
func Record(cfg engine.Config, f Fixture) (Fixture, error) {
	states, err := Run(cfg, f)
	if err != nil {
		return Fixture{}, err
	}
	f.Expected = make([]FixtureState, len(states))
	for i, st := range states {
		f.Expected[i] = Pin(st)
	}
	return f, nil
}

// CheckDeterminism replays the fixture twice and confirms both runs agree
// with each other, independent of any recorded expectations.
func CheckDeterminism(cfg engine.Config, f Fixture) error {
	a, err := Run(cfg, f)
	if err != nil {
		return err
	}
	b, err := Run(cfg, f)
	if err != nil {
		return err
	}
	for i := range a {
		if !equalState(Pin(a[i]), Pin(b[i])) {
			return fmt.Errorf("non-deterministic at step %d: z %.17g vs %.17g", i, a[i].Phase.Z, b[i].Phase.Z)
		}
	}
	return nil
}

// #endregion harness
