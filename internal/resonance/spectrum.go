package resonance

import "math"

// #region spectrum

// flatVariance is the threshold under which a series is treated as flat.
const flatVariance = 1e-12

// dominantOscillation estimates the dominant frequency and amplitude of
// the z series from its autocorrelation. The dominant period is the
// positive lag with the largest positive autocorrelation after the first
// zero crossing; frequency is its reciprocal scaled by the mean sample
// interval. Amplitude is √2·σ, the amplitude of a sinusoid with the
// series' variance. Deterministic throughout.
func dominantOscillation(zs []float64, dt float64) (freq, amplitude float64) {
	n := len(zs)
	if n < 4 || dt <= 0 {
		return 0, 0
	}

	mean := 0.0
	for _, z := range zs {
		mean += z
	}
	mean /= float64(n)

	x := make([]float64, n)
	variance := 0.0
	for i, z := range zs {
		x[i] = z - mean
		variance += x[i] * x[i]
	}
	variance /= float64(n)
	if variance < flatVariance {
		return 0, 0
	}

	amplitude = math.Sqrt2 * math.Sqrt(variance)

	// Normalized autocorrelation at positive lags.
	maxLag := n - 2
	acf := make([]float64, maxLag+1)
	denom := variance * float64(n)
	for lag := 1; lag <= maxLag; lag++ {
		sum := 0.0
		for i := 0; i+lag < n; i++ {
			sum += x[i] * x[i+lag]
		}
		acf[lag] = sum / denom
	}

	// Skip to the first zero crossing, then take the strongest positive
	// peak beyond it. No crossing or no positive peak: no oscillation.
	crossed := 0
	for lag := 1; lag <= maxLag; lag++ {
		if acf[lag] <= 0 {
			crossed = lag
			break
		}
	}
	if crossed == 0 {
		return 0, amplitude
	}

	bestLag := 0
	bestVal := 0.0
	for lag := crossed; lag <= maxLag; lag++ {
		if acf[lag] > bestVal {
			bestVal = acf[lag]
			bestLag = lag
		}
	}
	if bestLag == 0 {
		return 0, amplitude
	}
	return 1 / (float64(bestLag) * dt), amplitude
}

// #endregion spectrum
