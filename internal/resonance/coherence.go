package resonance

import (
	"math"

	"github.com/kestrelops/cascade/internal/telemetry"
)

// #region coherence

// coherence computes Φ: the mean absolute pairwise Pearson correlation of
// the 8 dimension series over the window. Two flat series move identically
// and count as fully coherent; a flat series against a moving one counts
// as zero. Result in [0,1].
func coherence(pts []point) float64 {
	n := len(pts)
	if n < 2 {
		return 0
	}

	const k = telemetry.DimensionCount
	var mean, variance [k]float64
	for d := 0; d < k; d++ {
		for _, p := range pts {
			mean[d] += p.dims[d]
		}
		mean[d] /= float64(n)
		for _, p := range pts {
			diff := p.dims[d] - mean[d]
			variance[d] += diff * diff
		}
		variance[d] /= float64(n)
	}

	sum := 0.0
	pairs := 0
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			pairs++
			flatI := variance[i] < flatVariance
			flatJ := variance[j] < flatVariance
			switch {
			case flatI && flatJ:
				sum += 1
			case flatI || flatJ:
				// one moving, one flat: independent
			default:
				cov := 0.0
				for _, p := range pts {
					cov += (p.dims[i] - mean[i]) * (p.dims[j] - mean[j])
				}
				cov /= float64(n)
				r := cov / math.Sqrt(variance[i]*variance[j])
				if r < 0 {
					r = -r
				}
				if r > 1 {
					r = 1
				}
				sum += r
			}
		}
	}
	return sum / float64(pairs)
}

// #endregion coherence

// #region trend

// slope fits a least-squares line through the series against sample index
// and returns its per-sample slope. Fewer than two points: 0.
func slope(ys []float64) float64 {
	n := len(ys)
	if n < 2 {
		return 0
	}

	meanX := float64(n-1) / 2
	meanY := 0.0
	for _, y := range ys {
		meanY += y
	}
	meanY /= float64(n)

	num, den := 0.0, 0.0
	for i, y := range ys {
		dx := float64(i) - meanX
		num += dx * (y - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// #endregion trend
