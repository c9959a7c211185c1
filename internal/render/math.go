package render

import (
	"math"

	"github.com/savageogre/opengate/internal/plan"
	"github.com/savageogre/opengate/internal/timing"
)

// expK sets how sharply the exponential curve starts slow.
const expK = 4.0

// Ease maps t in [0, 1] through curve. Values outside [0, 1] are clamped.
func Ease(t float64, curve plan.Curve) float64 {
	x := min(max(t, 0), 1)
	if curve == plan.Exp {
		return (math.Exp(expK*x) - 1) / (math.Exp(expK) - 1)
	}
	return x
}

// Lerp interpolates between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Progress returns the normalized position of sample n in a chunk of
// length samples: n/(samples-1), or 1 for chunks of at most one sample.
func Progress(n, samples int) float64 {
	if samples <= 1 {
		return 1
	}
	return float64(n) / float64(samples-1)
}

// FadeLength is the global fade length in samples, clamped to
// [1, total/2].
func FadeLength(fadeMs float64, sampleRate, total int) int {
	return max(min(timing.MsToSamples(fadeMs, sampleRate), total/2), 1)
}

// FadeGain is the fade envelope at global sample n.
func FadeGain(n, total, fadeLen int) float64 {
	switch {
	case n < fadeLen:
		return float64(n) / float64(fadeLen)
	case n+fadeLen >= total:
		return min(max(float64(total-n)/float64(fadeLen), 0), 1)
	default:
		return 1
	}
}

// NormalizeGains scales tone and noise gains down proportionally when
// they sum past 1.
func NormalizeGains(tone, noise float64) (float64, float64) {
	if total := tone + noise; total > 1 {
		return tone / total, noise / total
	}
	return tone, noise
}
