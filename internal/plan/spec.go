package plan

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/savageogre/opengate/internal/noise"
	"github.com/savageogre/opengate/internal/timing"
)

// ErrInvalidPlan is returned for plans that decode but make no sense.
var ErrInvalidPlan = errors.New("invalid plan")

// DefaultCarrier is the carrier used when a tone omits it.
const DefaultCarrier = 200.0

// Curve shapes the progress of a transition.
type Curve int

const (
	Linear Curve = iota
	Exp
)

func (c Curve) String() string {
	if c == Exp {
		return "exp"
	}
	return "linear"
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Curve) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "linear", "":
		*c = Linear
	case "exp", "exponential":
		*c = Exp
	default:
		return fmt.Errorf("%w: unknown curve %q", ErrInvalidPlan, text)
	}
	return nil
}

// NoiseSpec layers colored noise under a tone.
type NoiseSpec struct {
	Color noise.Color `yaml:"color"`
	Gain  float64     `yaml:"gain"`
}

// UnmarshalYAML requires a color.
func (n *NoiseSpec) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Color *noise.Color `yaml:"color"`
		Gain  float64      `yaml:"gain"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Color == nil {
		return fmt.Errorf("line %d: %w: noise needs a color", node.Line, ErrInvalidPlan)
	}
	*n = NoiseSpec{Color: *raw.Color, Gain: raw.Gain}
	return nil
}

// ToneSpec is a carrier frequency, the beat offset added to the right
// channel, a gain and optional noise.
type ToneSpec struct {
	Carrier float64    `yaml:"carrier"`
	Hz      float64    `yaml:"hz"`
	Gain    float64    `yaml:"gain"`
	Noise   *NoiseSpec `yaml:"noise,omitempty"`
}

// NoiseGain returns the noise gain, or 0 without noise.
func (t ToneSpec) NoiseGain() float64 {
	if t.Noise == nil {
		return 0
	}
	return t.Noise.Gain
}

// UnmarshalYAML applies defaults: carrier 200 Hz, gain 1. hz is required.
func (t *ToneSpec) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Carrier *float64   `yaml:"carrier"`
		Hz      *float64   `yaml:"hz"`
		Gain    *float64   `yaml:"gain"`
		Noise   *NoiseSpec `yaml:"noise"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Hz == nil {
		return fmt.Errorf("line %d: %w: tone needs hz", node.Line, ErrInvalidPlan)
	}

	*t = ToneSpec{Carrier: DefaultCarrier, Hz: *raw.Hz, Gain: 1, Noise: raw.Noise}
	if raw.Carrier != nil {
		t.Carrier = *raw.Carrier
	}
	if raw.Gain != nil {
		t.Gain = *raw.Gain
	}
	return nil
}

// MixinType selects the mixin source.
type MixinType string

const (
	MixinAudio MixinType = "audio"
	MixinTTS   MixinType = "tts"
)

// MixinSpec is an overlay as written in the plan.
type MixinSpec struct {
	Type   MixinType
	Gain   float64
	Offset timing.Seconds

	// audio
	Path string

	// tts
	Text   string
	Model  string
	Config string
	Key    string
}

// UnmarshalYAML validates the fields required by each mixin type.
func (m *MixinSpec) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Type   MixinType      `yaml:"type"`
		Gain   *float64       `yaml:"gain"`
		Offset timing.Seconds `yaml:"offset"`
		Path   string         `yaml:"path"`
		Text   string         `yaml:"text"`
		Model  string         `yaml:"model"`
		Config string         `yaml:"config"`
		Key    string         `yaml:"key"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	*m = MixinSpec{
		Type:   raw.Type,
		Gain:   1,
		Offset: raw.Offset,
		Path:   raw.Path,
		Text:   raw.Text,
		Model:  raw.Model,
		Config: raw.Config,
		Key:    raw.Key,
	}
	if raw.Gain != nil {
		m.Gain = *raw.Gain
	}

	switch m.Type {
	case MixinAudio:
		if m.Path == "" {
			return fmt.Errorf("line %d: %w: audio mixin needs a path", node.Line, ErrInvalidPlan)
		}
	case MixinTTS:
		if m.Model == "" {
			return fmt.Errorf("line %d: %w: tts mixin needs a model", node.Line, ErrInvalidPlan)
		}
	default:
		return fmt.Errorf("line %d: %w: unknown mixin type %q", node.Line, ErrInvalidPlan, m.Type)
	}
	return nil
}

// SegmentType distinguishes tones from transitions.
type SegmentType string

const (
	SegmentTone       SegmentType = "tone"
	SegmentTransition SegmentType = "transition"
)

// Segment is one timed entry of a plan.
type Segment struct {
	Type     SegmentType
	Duration timing.Seconds
	Mixins   []MixinSpec

	// Tone is set for tone segments.
	Tone ToneSpec

	// From, To and Curve are set for transitions.
	From  ToneSpec
	To    ToneSpec
	Curve Curve
}

// UnmarshalYAML decodes the tagged union keyed by "type".
func (s *Segment) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Type   SegmentType     `yaml:"type"`
		Dur    *timing.Seconds `yaml:"dur"`
		Mixins []MixinSpec     `yaml:"mixins"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}
	if head.Dur == nil {
		return fmt.Errorf("line %d: %w: segment needs dur", node.Line, ErrInvalidPlan)
	}

	seg := Segment{Type: head.Type, Duration: *head.Dur, Mixins: head.Mixins}

	switch head.Type {
	case SegmentTone:
		if err := node.Decode(&seg.Tone); err != nil {
			return err
		}
	case SegmentTransition:
		var body struct {
			From  *ToneSpec `yaml:"from"`
			To    *ToneSpec `yaml:"to"`
			Curve Curve     `yaml:"curve"`
		}
		if err := node.Decode(&body); err != nil {
			return err
		}
		if body.From == nil || body.To == nil {
			return fmt.Errorf("line %d: %w: transition needs from and to", node.Line, ErrInvalidPlan)
		}
		seg.From, seg.To, seg.Curve = *body.From, *body.To, body.Curve
	default:
		return fmt.Errorf("line %d: %w: unknown segment type %q", node.Line, ErrInvalidPlan, head.Type)
	}

	*s = seg
	return nil
}
