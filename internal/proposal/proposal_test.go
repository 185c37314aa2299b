package proposal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kestrelops/cascade/internal/burden"
	"github.com/kestrelops/cascade/internal/phase"
	"github.com/kestrelops/cascade/internal/telemetry"
)

const uniformR2 = `
weights:
  R2:
    cpu_load: 0.125
    memory_pressure: 0.125
    io_wait: 0.125
    queue_depth: 0.125
    error_rate: 0.125
    latency_drift: 0.125
    saturation: 0.125
    churn: 0.125
`

func writeProposal(t *testing.T, dir, name, doc string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
	return path
}

func TestLoadFileParsesTables(t *testing.T) {
	dir := t.TempDir()
	path := writeProposal(t, dir, "p.yaml", uniformR2, time.Now())

	p, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	wt, ok := p.Weights[phase.RegimeR2]
	if !ok {
		t.Fatal("R2 table missing")
	}
	if wt[telemetry.DimChurn] != 0.125 {
		t.Fatalf("churn weight %g", wt[telemetry.DimChurn])
	}
}

func TestLoadFileRejectsUnknownRegime(t *testing.T) {
	dir := t.TempDir()
	path := writeProposal(t, dir, "bad.yaml", "weights:\n  R9: {cpu_load: 1.0}\n", time.Now())
	if _, err := LoadFile(path); err == nil {
		t.Fatal("unknown regime accepted")
	}
}

func TestLoadFileRejectsUnknownDimension(t *testing.T) {
	dir := t.TempDir()
	path := writeProposal(t, dir, "bad.yaml", "weights:\n  R1: {disk_temp: 1.0}\n", time.Now())
	if _, err := LoadFile(path); err == nil {
		t.Fatal("unknown dimension accepted")
	}
}

func TestLoadDirOrdersByModTime(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	// Names sort against mtime order on purpose.
	writeProposal(t, dir, "z-first.yaml", uniformR2, base)
	writeProposal(t, dir, "a-second.yaml", uniformR2, base.Add(time.Minute))
	writeProposal(t, dir, "ignored.txt", "not yaml", base)

	got, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("proposal count %d, want 2", len(got))
	}
	if filepath.Base(got[0].Path) != "z-first.yaml" || filepath.Base(got[1].Path) != "a-second.yaml" {
		t.Fatalf("mtime ordering wrong: %s, %s", got[0].Path, got[1].Path)
	}
}

func TestMergeLastWriterWinsPerRegime(t *testing.T) {
	base := map[phase.Regime]burden.WeightTable{
		phase.RegimeR1: {telemetry.DimCPULoad: 1.0},
		phase.RegimeR2: {telemetry.DimCPULoad: 1.0},
	}
	proposals := []Proposal{
		{Path: "old", Weights: map[phase.Regime]burden.WeightTable{
			phase.RegimeR1: {telemetry.DimChurn: 1.0},
		}},
		{Path: "new", Weights: map[phase.Regime]burden.WeightTable{
			phase.RegimeR1: {telemetry.DimErrorRate: 1.0},
		}},
	}

	merged := Merge(base, proposals)
	if merged[phase.RegimeR1][telemetry.DimErrorRate] != 1.0 {
		t.Fatalf("newest proposal did not win R1: %+v", merged[phase.RegimeR1])
	}
	if _, ok := merged[phase.RegimeR1][telemetry.DimChurn]; ok {
		t.Fatal("replaced table leaked entries from the older proposal")
	}
	if merged[phase.RegimeR2][telemetry.DimCPULoad] != 1.0 {
		t.Fatal("untouched regime lost its base table")
	}
	// Base must stay unmutated.
	if _, ok := base[phase.RegimeR1][telemetry.DimErrorRate]; ok {
		t.Fatal("merge mutated base")
	}
}
