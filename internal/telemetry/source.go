package telemetry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"
)

// #region jsonl

// wireSample mirrors Sample with JSON tags for the daemon's stdin format.
type wireSample struct {
	Timestamp time.Time          `json:"timestamp"`
	DT        float64            `json:"dt"`
	Raw       map[string]float64 `json:"raw"`
}

// Reader decodes newline-delimited JSON samples from an io.Reader.
type Reader struct {
	scanner   *bufio.Scanner
	defaultDT float64
	line      int
}

// NewReader wraps r. defaultDT is used for records that omit dt.
func NewReader(r io.Reader, defaultDT float64) *Reader {
	return &Reader{scanner: bufio.NewScanner(r), defaultDT: defaultDT}
}

// Next returns the next sample, io.EOF at end of stream, or a decode error.
// Blank lines are skipped.
func (r *Reader) Next() (Sample, error) {
	for r.scanner.Scan() {
		r.line++
		text := r.scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var w wireSample
		if err := json.Unmarshal(text, &w); err != nil {
			return Sample{}, fmt.Errorf("decode sample line %d: %w", r.line, err)
		}
		s := Sample{Raw: make(map[Dimension]float64, len(w.Raw)), Timestamp: w.Timestamp, DT: w.DT}
		for k, v := range w.Raw {
			s.Raw[Dimension(k)] = v
		}
		if s.DT == 0 {
			s.DT = r.defaultDT
		}
		if s.Timestamp.IsZero() {
			s.Timestamp = time.Now().UTC()
		}
		return s, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Sample{}, fmt.Errorf("read samples: %w", err)
	}
	return Sample{}, io.EOF
}

// #endregion jsonl

// #region synthetic

// Synthetic produces a deterministic stream of plausible telemetry for
// demos and replay fixtures. Same seed, same stream.
type Synthetic struct {
	rng   *rand.Rand
	step  int
	dt    float64
	start time.Time
}

// NewSynthetic creates a seeded synthetic source emitting one sample per
// dt seconds of simulated time.
func NewSynthetic(seed int64, dt float64) *Synthetic {
	return &Synthetic{
		rng:   rand.New(rand.NewSource(seed)),
		dt:    dt,
		start: time.Unix(0, 0).UTC(),
	}
}

// Next returns the next synthetic sample. Dimensions drift on slow
// sinusoids with seeded jitter so the analyzer has structure to find.
func (s *Synthetic) Next() Sample {
	t := float64(s.step) * s.dt
	raw := make(map[Dimension]float64, DimensionCount)
	for i, d := range Dimensions {
		base := 0.35 + 0.25*math.Sin(t/(8.0+float64(i)))
		jitter := 0.08 * s.rng.NormFloat64()
		v := base + jitter
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		raw[d] = v
	}
	sample := Sample{
		Raw:       raw,
		Timestamp: s.start.Add(time.Duration(t * float64(time.Second))),
		DT:        s.dt,
	}
	s.step++
	return sample
}

// #endregion synthetic
