package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/kestrelops/cascade/internal/engine"
	"github.com/kestrelops/cascade/internal/phase"
	"github.com/kestrelops/cascade/internal/resonance"
	"github.com/kestrelops/cascade/internal/telemetry"
)

// #region wire

// exportRecord is the JSONL line format for snapshot archives.
type exportRecord struct {
	ID        string                            `json:"id"`
	Seq       uint64                            `json:"seq"`
	Timestamp time.Time                         `json:"timestamp"`
	Z         float64                           `json:"z"`
	Regime    string                            `json:"regime"`
	Velocity  float64                           `json:"velocity"`
	Composite float64                           `json:"composite"`
	Dims      [telemetry.DimensionCount]float64 `json:"dims"`
	Risk      *float64                          `json:"risk,omitempty"`
	Distance  float64                           `json:"distance"`
	Trend     float64                           `json:"trend"`
	Profile   *resonance.ResonanceProfile       `json:"profile,omitempty"`
}

func toRecord(st engine.SystemState) exportRecord {
	return exportRecord{
		ID:        st.ID,
		Seq:       st.Seq,
		Timestamp: st.Timestamp,
		Z:         st.Phase.Z,
		Regime:    string(st.Phase.Regime),
		Velocity:  st.Phase.Velocity,
		Composite: st.Burden.Composite,
		Dims:      st.Burden.Dimensions,
		Risk:      st.Signal.Risk,
		Distance:  st.Signal.DistanceToCritical,
		Trend:     st.Signal.Trend,
		Profile:   st.Profile,
	}
}

func fromRecord(r exportRecord) engine.SystemState {
	st := engine.SystemState{
		ID:        r.ID,
		Seq:       r.Seq,
		Timestamp: r.Timestamp,
	}
	st.Phase = phase.PhaseState{
		Z:         r.Z,
		Regime:    phase.Regime(r.Regime),
		Velocity:  r.Velocity,
		Timestamp: r.Timestamp,
	}
	st.Burden.Composite = r.Composite
	st.Burden.Dimensions = r.Dims
	st.Burden.Regime = phase.Regime(r.Regime)
	st.Signal = resonance.CascadeSignal{
		Risk:               r.Risk,
		DistanceToCritical: r.Distance,
		Trend:              r.Trend,
	}
	st.Profile = r.Profile
	return st
}

// #endregion wire

// #region export

// Export writes every snapshot from fromSeq onward as zstd-compressed
// JSONL and returns the number of records written.
func (s *Store) Export(w io.Writer, fromSeq uint64) (int, error) {
	states, err := s.Range(fromSeq, 0)
	if err != nil {
		return 0, err
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	for _, st := range states {
		if err := enc.Encode(toRecord(st)); err != nil {
			zw.Close()
			return 0, fmt.Errorf("encode seq %d: %w", st.Seq, err)
		}
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("flush archive: %w", err)
	}
	return len(states), nil
}

// ExportFile exports to path, creating or truncating it.
func (s *Store) ExportFile(path string, fromSeq uint64) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create archive %s: %w", path, err)
	}
	defer f.Close()
	n, err := s.Export(f, fromSeq)
	if err != nil {
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close archive: %w", err)
	}
	return n, nil
}

// #endregion export

// #region import

// ReadArchive decodes a zstd JSONL archive back into snapshots, in
// file order.
func ReadArchive(r io.Reader) ([]engine.SystemState, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer zr.Close()

	var out []engine.SystemState
	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec exportRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("decode archive line: %w", err)
		}
		out = append(out, fromRecord(rec))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return out, nil
}

// Import appends every record from a zstd JSONL archive into the store.
func (s *Store) Import(r io.Reader) (int, error) {
	states, err := ReadArchive(r)
	if err != nil {
		return 0, err
	}
	for _, st := range states {
		if err := s.Append(st); err != nil {
			return 0, fmt.Errorf("import seq %d: %w", st.Seq, err)
		}
	}
	return len(states), nil
}

// #endregion import
