package resonance

import (
	"time"

	"github.com/kestrelops/cascade/internal/telemetry"
)

// #region analyzer

// Analyzer maintains the sliding window. Single-writer: only Ingest
// mutates it; Analyze reads the same goroutine's view.
type Analyzer struct {
	cfg    Config
	ring   []point
	next   int
	count  int
	latest point
}

// NewAnalyzer validates cfg and allocates the window.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{cfg: cfg, ring: make([]point, cfg.WindowSize)}, nil
}

// Config returns the analyzer configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// Full reports whether the window has filled.
func (a *Analyzer) Full() bool { return a.count >= a.cfg.WindowSize }

// Len returns the number of samples currently held.
func (a *Analyzer) Len() int { return a.count }

// #endregion analyzer

// #region ingest

// Ingest appends one (z, composite, dims) observation, evicting the oldest
// once the window is full.
func (a *Analyzer) Ingest(z, composite float64, dims [telemetry.DimensionCount]float64, t time.Time, dt float64) {
	p := point{z: z, composite: composite, dims: dims, t: t, dt: dt}
	a.ring[a.next] = p
	a.next = (a.next + 1) % a.cfg.WindowSize
	if a.count < a.cfg.WindowSize {
		a.count++
	}
	a.latest = p
}

// ordered returns the window contents oldest-first.
func (a *Analyzer) ordered() []point {
	out := make([]point, 0, a.count)
	if a.count < a.cfg.WindowSize {
		out = append(out, a.ring[:a.count]...)
		return out
	}
	out = append(out, a.ring[a.next:]...)
	out = append(out, a.ring[:a.next]...)
	return out
}

// #endregion ingest

// #region analyze

// Analyze derives the resonance profile and cascade signal from the
// current window. Before the window fills the profile is nil and the
// signal carries a nil risk alongside the distance and trend computed from
// whatever history exists.
func (a *Analyzer) Analyze() (*ResonanceProfile, CascadeSignal) {
	pts := a.ordered()

	signal := CascadeSignal{
		DistanceToCritical: a.distance(),
		Trend:              slope(zSeries(pts)),
	}
	if !a.Full() {
		return nil, signal
	}

	zs := zSeries(pts)
	freq, amp := dominantOscillation(zs, meanDT(pts))
	phi := coherence(pts)

	profile := &ResonanceProfile{
		DominantFrequency: freq,
		Coherence:         phi,
		Amplitude:         amp,
	}

	risk := a.risk(signal.DistanceToCritical, signal.Trend, phi)
	signal.Risk = &risk
	return profile, signal
}

// distance returns |z_latest - z_c|, or the full span when empty.
func (a *Analyzer) distance() float64 {
	if a.count == 0 {
		return a.cfg.Critical
	}
	d := a.latest.z - a.cfg.Critical
	if d < 0 {
		d = -d
	}
	return d
}

// risk blends proximity, trend-toward-critical, and coherence into [0,1].
// Monotone: shrinking distance, trend moving toward z_c, and rising Φ all
// raise it.
func (a *Analyzer) risk(dist, trend, phi float64) float64 {
	proximity := a.cfg.Epsilon / (dist + a.cfg.Epsilon)

	toward := trend
	if a.latest.z > a.cfg.Critical {
		toward = -trend
	}
	towardNorm := toward / a.cfg.TrendScale
	if towardNorm < 0 {
		towardNorm = 0
	}
	if towardNorm > 1 {
		towardNorm = 1
	}

	r := a.cfg.ProximityWeight*proximity +
		a.cfg.TrendWeight*towardNorm +
		a.cfg.CoherenceWeight*phi
	if r < 0 {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	return r
}

// #endregion analyze

// #region helpers

func zSeries(pts []point) []float64 {
	zs := make([]float64, len(pts))
	for i, p := range pts {
		zs[i] = p.z
	}
	return zs
}

func meanDT(pts []point) float64 {
	if len(pts) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range pts {
		sum += p.dt
	}
	return sum / float64(len(pts))
}

// #endregion helpers
