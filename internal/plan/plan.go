// Package plan loads render plans and turns them into sample-accurate
// chunks ready for the render engine.
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/savageogre/opengate/internal/timing"
)

// Defaults used when neither the plan nor the settings say otherwise.
const (
	DefaultSampleRate = 48000
	DefaultGain       = 0.9
	DefaultFadeMs     = 50.0

	// MaxSampleRate is the highest accepted output rate.
	MaxSampleRate = 384000
)

// Plan is a decoded plan file.
type Plan struct {
	Out        string    `yaml:"out"`
	SampleRate *int      `yaml:"sample_rate"`
	Gain       *float64  `yaml:"gain"`
	FadeMs     *float64  `yaml:"fade_ms"`
	AudioDir   string    `yaml:"audio_dir"`
	ModelDir   string    `yaml:"model_dir"`
	Segments   []Segment `yaml:"segments"`

	// BaseDir anchors relative paths; it is the plan file's directory.
	BaseDir string `yaml:"-"`
}

// Load reads and validates the plan at path.
func Load(path string) (*Plan, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data, filepath.Dir(abs))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a plan. baseDir anchors relative paths.
func Parse(data []byte, baseDir string) (*Plan, error) {
	var p Plan
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	p.BaseDir = baseDir

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the plan-level settings and bounds the total length to
// timing.MaxSeconds.
func (p *Plan) Validate() error {
	if p.SampleRate != nil {
		if err := ValidateSampleRate(*p.SampleRate); err != nil {
			return err
		}
	}

	var total float64
	for i, seg := range p.Segments {
		d := max(float64(seg.Duration), 0)
		if d > timing.MaxSeconds {
			return fmt.Errorf("%w: segment %d lasts longer than %s", ErrInvalidPlan, i+1, timing.Seconds(timing.MaxSeconds))
		}
		total += d
	}
	if total > timing.MaxSeconds {
		return fmt.Errorf("%w: plan lasts %s, longer than %s", ErrInvalidPlan, timing.Seconds(total), timing.Seconds(timing.MaxSeconds))
	}
	return nil
}

// ValidateSampleRate accepts rates in (0, MaxSampleRate].
func ValidateSampleRate(sr int) error {
	if sr <= 0 || sr > MaxSampleRate {
		return fmt.Errorf("%w: sample_rate must be between 1 and %d, got %d", ErrInvalidPlan, MaxSampleRate, sr)
	}
	return nil
}

// RenderConfig is the resolved, immutable render setup.
type RenderConfig struct {
	SampleRate int
	Gain       float64 // master gain in [0, 1]
	FadeMs     float64 // >= 0
}

// DefaultRenderConfig returns 48 kHz, gain 0.9 and a 50 ms fade.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{SampleRate: DefaultSampleRate, Gain: DefaultGain, FadeMs: DefaultFadeMs}
}

// Normalize clamps gain to [0, 1], fade to >= 0 and fills a missing rate.
func (c RenderConfig) Normalize() RenderConfig {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	c.Gain = min(max(c.Gain, 0), 1)
	c.FadeMs = max(c.FadeMs, 0)
	return c
}

// RenderConfig overlays the plan's settings on defaults.
func (p *Plan) RenderConfig(defaults RenderConfig) RenderConfig {
	cfg := defaults
	if p.SampleRate != nil {
		cfg.SampleRate = *p.SampleRate
	}
	if p.Gain != nil {
		cfg.Gain = *p.Gain
	}
	if p.FadeMs != nil {
		cfg.FadeMs = *p.FadeMs
	}
	return cfg.Normalize()
}
