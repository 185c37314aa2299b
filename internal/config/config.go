// Package config loads the engine configuration from YAML with env
// overrides for the daemon. File values overlay the defaults; anything
// invalid surfaces as a ConfigError at construction time.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/kestrelops/cascade/internal/burden"
	"github.com/kestrelops/cascade/internal/engine"
	"github.com/kestrelops/cascade/internal/phase"
	"github.com/kestrelops/cascade/internal/telemetry"
)

// #region file-schema

// File is the YAML schema. Zero values mean "keep the default"; weight and
// calibration maps replace the default tables wholesale when present.
type File struct {
	Phase struct {
		Boundary1       float64 `yaml:"boundary1"`
		Critical        float64 `yaml:"critical"`
		WellGain        float64 `yaml:"well_gain"`
		SlowingRadius   float64 `yaml:"slowing_radius"`
		MaxSubstepDelta float64 `yaml:"max_substep_delta"`
		MaxDT           float64 `yaml:"max_dt"`
	} `yaml:"phase"`

	Calibrations map[string]struct {
		Lo        float64 `yaml:"lo"`
		Hi        float64 `yaml:"hi"`
		Sharpness float64 `yaml:"sharpness"`
	} `yaml:"calibrations"`

	Weights map[string]map[string]float64 `yaml:"weights"`

	Resonance struct {
		WindowSize      int     `yaml:"window_size"`
		Epsilon         float64 `yaml:"epsilon"`
		TrendScale      float64 `yaml:"trend_scale"`
		ProximityWeight float64 `yaml:"proximity_weight"`
		TrendWeight     float64 `yaml:"trend_weight"`
		CoherenceWeight float64 `yaml:"coherence_weight"`
	} `yaml:"resonance"`

	ForcingGain    float64 `yaml:"forcing_gain"`
	ForcingBias    float64 `yaml:"forcing_bias"`
	NoiseAmplitude float64 `yaml:"noise_amplitude"`
	Seed           int64   `yaml:"seed"`
	InitialZ       float64 `yaml:"initial_z"`
	DefaultDT      float64 `yaml:"default_dt"`
}

// #endregion file-schema

// #region load

// Load reads path and overlays it on the engine defaults. An empty path
// returns the defaults untouched.
func Load(path string) (engine.Config, error) {
	cfg := engine.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return engine.Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	apply(&cfg, f)
	return cfg, nil
}

// apply overlays non-zero file values onto cfg.
func apply(cfg *engine.Config, f File) {
	if f.Phase.Boundary1 != 0 {
		cfg.Phase.Boundary1 = f.Phase.Boundary1
	}
	if f.Phase.Critical != 0 {
		cfg.Phase.Critical = f.Phase.Critical
		cfg.Resonance.Critical = f.Phase.Critical
	}
	if f.Phase.WellGain != 0 {
		cfg.Phase.WellGain = f.Phase.WellGain
	}
	if f.Phase.SlowingRadius != 0 {
		cfg.Phase.SlowingRadius = f.Phase.SlowingRadius
	}
	if f.Phase.MaxSubstepDelta != 0 {
		cfg.Phase.MaxSubstepDelta = f.Phase.MaxSubstepDelta
	}
	if f.Phase.MaxDT != 0 {
		cfg.Phase.MaxDT = f.Phase.MaxDT
	}

	if len(f.Calibrations) > 0 {
		cal := make(map[telemetry.Dimension]burden.Calibration, len(f.Calibrations))
		for name, c := range f.Calibrations {
			cal[telemetry.Dimension(name)] = burden.Calibration{Lo: c.Lo, Hi: c.Hi, Sharpness: c.Sharpness}
		}
		cfg.Burden.Calibrations = cal
	}
	if len(f.Weights) > 0 {
		cfg.Burden.Weights = WeightTables(f.Weights)
	}

	if f.Resonance.WindowSize != 0 {
		cfg.Resonance.WindowSize = f.Resonance.WindowSize
	}
	if f.Resonance.Epsilon != 0 {
		cfg.Resonance.Epsilon = f.Resonance.Epsilon
	}
	if f.Resonance.TrendScale != 0 {
		cfg.Resonance.TrendScale = f.Resonance.TrendScale
	}
	if f.Resonance.ProximityWeight != 0 || f.Resonance.TrendWeight != 0 || f.Resonance.CoherenceWeight != 0 {
		cfg.Resonance.ProximityWeight = f.Resonance.ProximityWeight
		cfg.Resonance.TrendWeight = f.Resonance.TrendWeight
		cfg.Resonance.CoherenceWeight = f.Resonance.CoherenceWeight
	}

	if f.ForcingGain != 0 {
		cfg.ForcingGain = f.ForcingGain
	}
	if f.ForcingBias != 0 {
		cfg.ForcingBias = f.ForcingBias
	}
	if f.NoiseAmplitude != 0 {
		cfg.NoiseAmplitude = f.NoiseAmplitude
	}
	if f.Seed != 0 {
		cfg.Seed = f.Seed
	}
	if f.InitialZ != 0 {
		cfg.InitialZ = f.InitialZ
	}
	if f.DefaultDT != 0 {
		cfg.DefaultDT = f.DefaultDT
	}
}

// WeightTables converts string-keyed YAML weight maps into typed tables.
// Validation happens at aggregator construction, not here.
func WeightTables(raw map[string]map[string]float64) map[phase.Regime]burden.WeightTable {
	out := make(map[phase.Regime]burden.WeightTable, len(raw))
	for regime, table := range raw {
		wt := make(burden.WeightTable, len(table))
		for dim, w := range table {
			wt[telemetry.Dimension(dim)] = w
		}
		out[phase.Regime(regime)] = wt
	}
	return out
}

// #endregion load

// #region env

// DaemonEnv carries the daemon's environment settings.
type DaemonEnv struct {
	ConfigPath  string `env:"CASCADE_CONFIG"`
	DBPath      string `env:"CASCADE_DB" envDefault:"cascade.db"`
	ProposalDir string `env:"CASCADE_PROPOSAL_DIR"`
	LogLevel    string `env:"CASCADE_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads DaemonEnv from the environment.
func ParseEnv() (DaemonEnv, error) {
	var e DaemonEnv
	if err := env.Parse(&e); err != nil {
		return DaemonEnv{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// #endregion env
