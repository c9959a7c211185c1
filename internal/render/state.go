package render

import (
	"math"

	"github.com/savageogre/opengate/internal/plan"
)

// State is the oscillator state of one render pass. Phases are in cycles,
// [0, 1), and carry over chunk boundaries untouched.
type State struct {
	PhaseL, PhaseR float64

	// N is the global index of the next sample.
	N int

	FadeLen int
	Total   int

	dt float64
}

// NewState prepares the state for rendering chunks.
func NewState(chunks []plan.Chunk, sampleRate int, fadeMs float64) *State {
	total := plan.TotalSamples(chunks)
	return &State{
		Total:   total,
		FadeLen: FadeLength(fadeMs, sampleRate, total),
		dt:      1 / float64(sampleRate),
	}
}

// Step advances both oscillators by one sample and returns their outputs.
func (s *State) Step(freqL, freqR float64) (left, right float64) {
	s.PhaseL = wrap(s.PhaseL + freqL*s.dt)
	s.PhaseR = wrap(s.PhaseR + freqR*s.dt)
	return math.Sin(2 * math.Pi * s.PhaseL), math.Sin(2 * math.Pi * s.PhaseR)
}

// Fade returns the envelope for the current sample.
func (s *State) Fade() float64 {
	return FadeGain(s.N, s.Total, s.FadeLen)
}

func wrap(phase float64) float64 {
	phase = math.Mod(phase, 1)
	if phase < 0 {
		phase++
	}
	if phase >= 1 {
		return 0
	}
	return phase
}
