package render

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/savageogre/opengate/internal/mixin"
	"github.com/savageogre/opengate/internal/noise"
	"github.com/savageogre/opengate/internal/plan"
	"github.com/savageogre/opengate/internal/sink"
)

// SinkFactory opens the output for a render.
type SinkFactory func(path string, sampleRate int, logger *log.Logger) (sink.Sink, error)

// Options configures File. The zero value renders plans without speech or
// sample caching.
type Options struct {
	Planner  *plan.Planner
	Mixer    Mixer
	Rand     noise.Source
	Logger   *log.Logger
	Defaults plan.RenderConfig // settings used where the plan is silent
	NewSink  SinkFactory
}

// Result summarizes a finished render.
type Result struct {
	ID       string
	Config   plan.RenderConfig
	Frames   int
	Duration time.Duration // length of the rendered audio
	Elapsed  time.Duration // wall time spent

	// Opened is set once the sink exists; after a failure out may then
	// hold a partial file.
	Opened bool
}

// File plans p, renders it and writes out. The sink is finalized even when
// rendering fails; the partial file is left for the caller to remove.
func File(ctx context.Context, p *plan.Plan, out string, opts Options) (Result, error) {
	start := time.Now()
	id := uuid.NewString()

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.With("render", id[:8])

	defaults := opts.Defaults
	if defaults == (plan.RenderConfig{}) {
		defaults = plan.DefaultRenderConfig()
	}
	cfg := p.RenderConfig(defaults)

	planner := opts.Planner
	if planner == nil {
		planner = &plan.Planner{}
	}
	if planner.Logger == nil {
		pl := *planner
		pl.Logger = logger
		planner = &pl
	}

	mixer := opts.Mixer
	if mixer == nil {
		mixer = mixin.NewCompositor(nil, logger)
	}
	newSink := opts.NewSink
	if newSink == nil {
		newSink = sink.New
	}

	res := Result{ID: id, Config: cfg}

	chunks, err := planner.Chunks(ctx, p, cfg.SampleRate)
	if err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	res.Frames = plan.TotalSamples(chunks)
	res.Duration = time.Duration(float64(res.Frames) / float64(cfg.SampleRate) * float64(time.Second))

	logger.Info("Rendering plan",
		"out", out,
		"segments", len(chunks),
		"length", res.Duration.Round(time.Millisecond),
		"sample_rate", cfg.SampleRate,
		"gain", cfg.Gain)

	s, err := newSink(out, cfg.SampleRate, logger)
	if err != nil {
		return res, err
	}
	res.Opened = true

	engine := NewEngine(cfg, mixer, opts.Rand, logger)
	if err := engine.Run(chunks, s); err != nil {
		_ = s.Finalize()
		return res, err
	}
	if err := s.Finalize(); err != nil {
		return res, err
	}

	res.Elapsed = time.Since(start)
	logger.Info("Render complete",
		"out", out,
		"frames", humanize.Comma(int64(res.Frames)),
		"took", res.Elapsed.Round(time.Millisecond))
	return res, nil
}
