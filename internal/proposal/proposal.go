// Package proposal loads regime weight-table overrides from a drop
// directory. Operators write small YAML files proposing new weights; the
// daemon validates each proposal against the live calibration config and
// applies the merged tables at a safe point between ingests.
package proposal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kestrelops/cascade/internal/burden"
	"github.com/kestrelops/cascade/internal/phase"
	"github.com/kestrelops/cascade/internal/telemetry"
)

// #region types

// Proposal is one parsed drop file. A file may carry tables for any
// subset of regimes.
type Proposal struct {
	Path    string
	Weights map[phase.Regime]burden.WeightTable
}

// #endregion types

// #region load

// LoadFile parses one proposal file.
func LoadFile(path string) (Proposal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Proposal{}, fmt.Errorf("read proposal %s: %w", path, err)
	}
	var raw struct {
		Weights map[string]map[string]float64 `yaml:"weights"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Proposal{}, fmt.Errorf("parse proposal %s: %w", path, err)
	}
	if len(raw.Weights) == 0 {
		return Proposal{}, fmt.Errorf("proposal %s: no weight tables", path)
	}

	p := Proposal{Path: path, Weights: make(map[phase.Regime]burden.WeightTable, len(raw.Weights))}
	for regime, table := range raw.Weights {
		r := phase.Regime(regime)
		if !validRegime(r) {
			return Proposal{}, fmt.Errorf("proposal %s: unknown regime %q", path, regime)
		}
		wt := make(burden.WeightTable, len(table))
		for dim, w := range table {
			d := telemetry.Dimension(dim)
			if telemetry.Index(d) < 0 {
				return Proposal{}, fmt.Errorf("proposal %s: unknown dimension %q", path, dim)
			}
			wt[d] = w
		}
		p.Weights[r] = wt
	}
	return p, nil
}

func validRegime(r phase.Regime) bool {
	for _, known := range phase.Regimes {
		if r == known {
			return true
		}
	}
	return false
}

// LoadDir reads every .yaml/.yml file in dir ordered by modification
// time, oldest first. Ordering decides which proposal wins a regime when
// two files propose the same table.
func LoadDir(dir string) ([]Proposal, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read proposal dir %s: %w", dir, err)
	}

	type candidate struct {
		path  string
		mtime int64
	}
	var files []candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat proposal %s: %w", e.Name(), err)
		}
		files = append(files, candidate{filepath.Join(dir, e.Name()), info.ModTime().UnixNano()})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].mtime != files[j].mtime {
			return files[i].mtime < files[j].mtime
		}
		return files[i].path < files[j].path
	})

	out := make([]Proposal, 0, len(files))
	for _, f := range files {
		p, err := LoadFile(f.path)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// #endregion load

// #region merge

// Merge overlays proposals on base, in order. Each proposal replaces the
// full table for the regimes it names; regimes it omits keep their
// previous table. Base is never mutated.
func Merge(base map[phase.Regime]burden.WeightTable, proposals []Proposal) map[phase.Regime]burden.WeightTable {
	merged := make(map[phase.Regime]burden.WeightTable, len(base))
	for r, wt := range base {
		cp := make(burden.WeightTable, len(wt))
		for d, w := range wt {
			cp[d] = w
		}
		merged[r] = cp
	}
	for _, p := range proposals {
		for r, wt := range p.Weights {
			cp := make(burden.WeightTable, len(wt))
			for d, w := range wt {
				cp[d] = w
			}
			merged[r] = cp
		}
	}
	return merged
}

// #endregion merge
