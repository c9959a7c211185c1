// Package render synthesizes binaural beats from planned chunks and writes
// them to a sink.
package render

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/savageogre/opengate/internal/mixin"
	"github.com/savageogre/opengate/internal/noise"
	"github.com/savageogre/opengate/internal/plan"
	"github.com/savageogre/opengate/internal/sink"
)

const progressEvery = 4096

// Mixer adds a mixin into a chunk-sized buffer.
type Mixer interface {
	MixIn(dest []float32, m mixin.Mixin, sampleRate int) error
}

// Engine renders chunks sample by sample. An Engine may run several
// renders, one at a time; each Run owns a fresh State.
type Engine struct {
	cfg    plan.RenderConfig
	mixer  Mixer
	rng    noise.Source
	logger *log.Logger
}

// NewEngine returns an engine. A nil mixer rejects chunks with mixins; a
// nil rng uses noise.DefaultSource.
func NewEngine(cfg plan.RenderConfig, mixer Mixer, rng noise.Source, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	if rng == nil {
		rng = noise.DefaultSource
	}
	return &Engine{cfg: cfg.Normalize(), mixer: mixer, rng: rng, logger: logger}
}

// Run renders chunks into s in order. It does not finalize s.
func (e *Engine) Run(chunks []plan.Chunk, s sink.Sink) error {
	st := NewState(chunks, e.cfg.SampleRate, e.cfg.FadeMs)
	progress := rate.Sometimes{Interval: 2 * time.Second}
	start := time.Now()

	e.logger.Debug("Rendering", "chunks", len(chunks), "samples", st.Total, "fade_samples", st.FadeLen)

	for i, c := range chunks {
		overlay, err := e.overlay(c)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i+1, err)
		}

		var voice func(n int) (float64, float64)
		switch c.Kind {
		case plan.ChunkTransition:
			voice = e.transition(st, c)
		default:
			voice = e.tone(st, c.Tone)
		}

		for n := 0; n < c.Samples; n++ {
			left, right := voice(n)
			if overlay != nil {
				left += float64(overlay[n])
				right += float64(overlay[n])
			}

			g := st.Fade() * e.cfg.Gain
			if err := s.WriteFrame(left*g, right*g); err != nil {
				return err
			}
			st.N++

			if st.N%progressEvery == 0 {
				progress.Do(func() {
					e.logger.Info("Rendering",
						"progress", fmt.Sprintf("%.0f%%", 100*float64(st.N)/float64(st.Total)),
						"elapsed", time.Since(start).Round(time.Second))
				})
			}
		}
	}
	return nil
}

// overlay pre-renders the chunk's mixins, or returns nil without any.
func (e *Engine) overlay(c plan.Chunk) ([]float32, error) {
	if len(c.Mixins) == 0 || c.Samples == 0 {
		return nil, nil
	}
	if e.mixer == nil {
		return nil, fmt.Errorf("chunk has %d mixins but no mixer is configured", len(c.Mixins))
	}
	buf := make([]float32, c.Samples)
	for _, m := range c.Mixins {
		if err := e.mixer.MixIn(buf, m, e.cfg.SampleRate); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func (e *Engine) tone(st *State, spec plan.ToneSpec) func(int) (float64, float64) {
	var gen *noise.Generator
	toneGain, noiseGain := spec.Gain, 0.0
	if spec.Noise != nil {
		gen = noise.New(spec.Noise.Color, e.rng)
		toneGain, noiseGain = NormalizeGains(spec.Gain, spec.Noise.Gain)
	}

	return func(int) (float64, float64) {
		left, right := st.Step(spec.Carrier, spec.Carrier+spec.Hz)
		left, right = left*toneGain, right*toneGain
		if gen != nil {
			v := gen.Next() * noiseGain
			left, right = left+v, right+v
		}
		return left, right
	}
}

// transition interpolates frequency and gain between two tones. Noise comes
// from one generator at a time: "from" while the eased progress is below
// one half, "to" after, falling back to whichever side has noise.
func (e *Engine) transition(st *State, c plan.Chunk) func(int) (float64, float64) {
	from, to := c.From, c.To

	var fromGen, toGen *noise.Generator
	if from.Noise != nil {
		fromGen = noise.New(from.Noise.Color, e.rng)
	}
	if to.Noise != nil {
		toGen = noise.New(to.Noise.Color, e.rng)
	}

	return func(n int) (float64, float64) {
		t := Ease(Progress(n, c.Samples), c.Curve)

		carrier := Lerp(from.Carrier, to.Carrier, t)
		hz := Lerp(from.Hz, to.Hz, t)
		left, right := st.Step(carrier, carrier+hz)

		toneGain := min(max(Lerp(from.Gain, to.Gain, t), 0), 1)

		gen := pickGenerator(fromGen, toGen, t)
		if gen == nil {
			return left * toneGain, right * toneGain
		}

		noiseGain := Lerp(from.NoiseGain(), to.NoiseGain(), t)
		toneGain, noiseGain = NormalizeGains(toneGain, noiseGain)
		v := gen.Next() * noiseGain
		return left*toneGain + v, right*toneGain + v
	}
}

func pickGenerator(from, to *noise.Generator, t float64) *noise.Generator {
	switch {
	case from != nil && to != nil:
		if t < 0.5 {
			return from
		}
		return to
	case from != nil:
		return from
	default:
		return to
	}
}
