package engine

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelops/cascade/internal/burden"
	"github.com/kestrelops/cascade/internal/phase"
	"github.com/kestrelops/cascade/internal/resonance"
	"github.com/kestrelops/cascade/internal/telemetry"
)

// #region engine

// Engine is the single-writer core. Ingest must be called from one
// goroutine; Latest may be read concurrently.
type Engine struct {
	cfg      Config
	model    *phase.Model
	agg      *burden.Aggregator
	analyzer *resonance.Analyzer
	rng      *rand.Rand

	cur    phase.PhaseState
	seq    uint64
	latest atomic.Pointer[SystemState]
}

// stateNamespace roots the deterministic per-seq snapshot IDs.
var stateNamespace = uuid.MustParse("9d2f1c4a-3e77-4b02-9c1a-5b8f0d6e2a41")

// New constructs the engine. All configuration errors surface here, before
// any ingest can succeed.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	model, err := phase.NewModel(cfg.Phase)
	if err != nil {
		return nil, err
	}
	agg, err := burden.NewAggregator(cfg.Burden)
	if err != nil {
		return nil, err
	}
	analyzer, err := resonance.NewAnalyzer(cfg.Resonance)
	if err != nil {
		return nil, err
	}
	cur, err := model.Init(cfg.InitialZ, time.Unix(0, 0).UTC())
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:      cfg,
		model:    model,
		agg:      agg,
		analyzer: analyzer,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		cur:      cur,
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// ApplyWeights swaps in new regime weight tables between ingests. The
// tables are validated against the existing calibrations; on error the
// current aggregator stays in force. Must be called from the ingest
// goroutine.
func (e *Engine) ApplyWeights(weights map[phase.Regime]burden.WeightTable) error {
	cfg := e.cfg.Burden
	cfg.Weights = weights
	agg, err := burden.NewAggregator(cfg)
	if err != nil {
		return err
	}
	e.agg = agg
	e.cfg.Burden = cfg
	return nil
}

// #endregion engine

// #region ingest

// Ingest runs one sample through the pipeline and returns the resulting
// snapshot. On InputError or NumericInstability the engine state — phase
// and analyzer window — is untouched.
func (e *Engine) Ingest(sample telemetry.Sample) (SystemState, error) {
	norm, err := e.agg.Normalize(sample)
	if err != nil {
		return SystemState{}, err
	}

	// Weights of the regime entering this step; the composite that drives
	// the forcing is defined before the phase advances.
	bv := e.agg.Aggregate(norm, e.cur.Regime)

	dt := sample.DT
	if dt == 0 {
		dt = e.cfg.DefaultDT
	}

	forcing := e.cfg.ForcingGain * (bv.Composite - e.cfg.ForcingBias)
	if e.cfg.NoiseAmplitude > 0 {
		forcing += e.cfg.NoiseAmplitude * e.rng.NormFloat64()
	}

	next, err := e.model.Step(e.cur, forcing, dt)
	if err != nil {
		return SystemState{}, fmt.Errorf("phase step at seq %d: %w", e.seq, err)
	}
	e.cur = next

	e.analyzer.Ingest(next.Z, bv.Composite, bv.Dimensions, sample.Timestamp, dt)
	profile, signal := e.analyzer.Analyze()

	e.seq++
	st := SystemState{
		ID:        uuid.NewSHA1(stateNamespace, []byte(fmt.Sprintf("cascade/%d", e.seq))).String(),
		Seq:       e.seq,
		Phase:     next,
		Burden:    bv,
		Signal:    signal,
		Profile:   profile,
		Timestamp: sample.Timestamp,
	}
	e.latest.Store(&st)
	return st, nil
}

// Latest returns the last fully-produced snapshot, or nil before the first
// successful ingest. Safe for concurrent readers.
func (e *Engine) Latest() *SystemState {
	return e.latest.Load()
}

// #endregion ingest
