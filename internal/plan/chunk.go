package plan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/savageogre/opengate/internal/failure"
	"github.com/savageogre/opengate/internal/mixin"
	"github.com/savageogre/opengate/internal/paths"
	"github.com/savageogre/opengate/internal/tts"
)

// ErrNoSpeech is returned when a plan needs speech but no synthesizer is
// configured.
var ErrNoSpeech = errors.New("speech synthesis is not configured")

// ChunkKind distinguishes steady tones from transitions.
type ChunkKind int

const (
	ChunkTone ChunkKind = iota
	ChunkTransition
)

func (k ChunkKind) String() string {
	if k == ChunkTransition {
		return "transition"
	}
	return "tone"
}

// Chunk is a segment resolved to a sample count with its mixins ready.
type Chunk struct {
	Kind    ChunkKind
	Samples int

	Tone ToneSpec

	From  ToneSpec
	To    ToneSpec
	Curve Curve

	Mixins []mixin.Mixin
}

// TotalSamples sums the sample counts of chunks.
func TotalSamples(chunks []Chunk) int {
	var n int
	for _, c := range chunks {
		n += c.Samples
	}
	return n
}

// Speech makes synthesized audio available on disk.
type Speech interface {
	Ensure(ctx context.Context, req tts.Request, force bool) (path string, synthesized bool, err error)
}

// Planner turns plans into chunks.
type Planner struct {
	// Speech renders tts mixins. Plans with tts mixins fail without it.
	Speech Speech

	// ModelsDir is searched for relative model names when the plan has
	// no model_dir.
	ModelsDir string

	// Force re-synthesizes speech that is already cached.
	Force bool

	Logger *log.Logger
}

// Chunks resolves every segment of p at sampleRate. Any mixin that cannot be
// resolved or synthesized aborts planning.
func (pl *Planner) Chunks(ctx context.Context, p *Plan, sampleRate int) ([]Chunk, error) {
	logger := pl.Logger
	if logger == nil {
		logger = log.Default()
	}

	if err := ValidateSampleRate(sampleRate); err != nil {
		return nil, failure.Planning("plan chunks", p.BaseDir, err)
	}
	if err := p.Validate(); err != nil {
		return nil, failure.Planning("plan chunks", p.BaseDir, err)
	}

	audioBase, err := pl.dir(p.BaseDir, p.AudioDir)
	if err != nil {
		return nil, failure.Planning("resolve audio_dir", p.AudioDir, err)
	}
	modelBase, err := pl.dir(p.BaseDir, p.ModelDir)
	if err != nil {
		return nil, failure.Planning("resolve model_dir", p.ModelDir, err)
	}

	chunks := make([]Chunk, 0, len(p.Segments))
	for i, seg := range p.Segments {
		c := Chunk{Samples: seg.Duration.Samples(sampleRate)}
		switch seg.Type {
		case SegmentTransition:
			c.Kind = ChunkTransition
			c.From, c.To, c.Curve = seg.From, seg.To, seg.Curve
		default:
			c.Kind = ChunkTone
			c.Tone = seg.Tone
		}

		for j, ms := range seg.Mixins {
			var m mixin.Mixin
			var err error
			switch ms.Type {
			case MixinTTS:
				m, err = pl.speech(ctx, ms, p.ModelDir != "", modelBase, p.BaseDir)
			default:
				m, err = pl.audio(ms, audioBase)
			}
			if err != nil {
				return nil, fmt.Errorf("segment %d mixin %d: %w", i+1, j+1, err)
			}
			c.Mixins = append(c.Mixins, m)
		}

		logger.Debug("Planned chunk", "index", i+1, "kind", c.Kind, "samples", c.Samples, "mixins", len(c.Mixins))
		chunks = append(chunks, c)
	}
	return chunks, nil
}

func (pl *Planner) dir(base, dir string) (string, error) {
	if dir == "" {
		return base, nil
	}
	return paths.Resolve(base, dir)
}

func (pl *Planner) audio(ms MixinSpec, base string) (mixin.Mixin, error) {
	p, err := paths.Resolve(base, ms.Path)
	if err != nil {
		return mixin.Mixin{}, failure.Planning("resolve audio mixin", ms.Path, err)
	}
	canonical, err := paths.Canonical(p)
	if err != nil {
		return mixin.Mixin{}, failure.Planning("resolve audio mixin", p, err)
	}
	return mixin.Mixin{Gain: ms.Gain, Path: canonical, Offset: float64(ms.Offset)}, nil
}

// modelPath resolves a model reference: against model_dir when the plan
// sets one, otherwise the models directory if the file is there, otherwise
// the plan directory.
func (pl *Planner) modelPath(ref string, hasModelDir bool, modelBase, planDir string) (string, error) {
	expanded, err := paths.Expand(ref)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(expanded) || hasModelDir {
		return paths.Resolve(modelBase, expanded)
	}
	if pl.ModelsDir != "" {
		if candidate := filepath.Join(pl.ModelsDir, expanded); paths.Exists(candidate) {
			return candidate, nil
		}
	}
	return paths.Resolve(planDir, expanded)
}

func (pl *Planner) speech(ctx context.Context, ms MixinSpec, hasModelDir bool, modelBase, planDir string) (mixin.Mixin, error) {
	if pl.Speech == nil {
		return mixin.Mixin{}, failure.Planning("synthesize speech", "", ErrNoSpeech)
	}

	resolved, err := pl.modelPath(ms.Model, hasModelDir, modelBase, planDir)
	if err != nil {
		return mixin.Mixin{}, failure.Planning("resolve tts model", ms.Model, err)
	}
	model, err := paths.Canonical(resolved)
	if err != nil {
		return mixin.Mixin{}, failure.Planning("resolve tts model", ms.Model, err)
	}

	// The default config sits next to the model as named, which may be a
	// symlink into a blob store.
	config := resolved + ".json"
	if ms.Config != "" {
		if config, err = pl.modelPath(ms.Config, hasModelDir, modelBase, planDir); err != nil {
			return mixin.Mixin{}, failure.Planning("resolve tts config", ms.Config, err)
		}
	}
	if config, err = paths.Canonical(config); err != nil {
		return mixin.Mixin{}, failure.Planning("resolve tts config", config, err)
	}

	req := tts.Request{Text: ms.Text, Model: model, Config: config, Key: ms.Key}
	path, _, err := pl.Speech.Ensure(ctx, req, pl.Force)
	if err != nil {
		return mixin.Mixin{}, failure.Planning("synthesize speech", model, err)
	}
	return mixin.Mixin{Gain: ms.Gain, Path: path, Offset: float64(ms.Offset)}, nil
}
