package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/savageogre/opengate/internal/cache"
	"github.com/savageogre/opengate/internal/mixin"
	"github.com/savageogre/opengate/internal/paths"
	"github.com/savageogre/opengate/internal/plan"
	"github.com/savageogre/opengate/internal/render"
	"github.com/savageogre/opengate/internal/tts"
)

// defaultOut is written when neither -o nor the plan names an output.
const defaultOut = "opengate.wav"

// app holds the collaborators shared by every render of one invocation.
type app struct {
	layout   paths.Layout
	store    *cache.Store
	planner  *plan.Planner
	mixer    *mixin.Compositor
	defaults plan.RenderConfig
	logger   *log.Logger
}

func newApp(s settings, force bool, logger *log.Logger) (*app, error) {
	layout, err := paths.NewLayout(s.CacheDir)
	if err != nil {
		return nil, err
	}
	models, err := layout.Models()
	if err != nil {
		return nil, err
	}
	audio, err := layout.Audio()
	if err != nil {
		return nil, err
	}

	var store *cache.Store
	if s.SamplesEnabled {
		dir, err := layout.Samples()
		if err != nil {
			return nil, err
		}
		store, err = cache.Open(cache.Config{
			MemoryCapacity:   s.SamplesMemoryMB << 20,
			DiskCapacity:     s.SamplesDiskMB << 20,
			Dir:              dir,
			CompressionLevel: s.SamplesZstdLevel,
		}, logger)
		if err != nil {
			// The cache only speeds things up.
			logger.Warn("Sample cache disabled", "dir", dir, "error", err)
			store = nil
		}
	}

	piper := tts.NewPiper(tts.PiperConfig{Binary: s.PiperBinary, Timeout: s.PiperTimeout}, logger)
	logger.Debug("Cache layout", "root", layout.Root, "models", models, "audio", audio)

	return &app{
		layout: layout,
		store:  store,
		planner: &plan.Planner{
			Speech:    tts.NewService(piper, audio, logger),
			ModelsDir: models,
			Force:     force,
			Logger:    logger,
		},
		mixer:    mixin.NewCompositor(store, logger),
		defaults: s.Render.Normalize(),
		logger:   logger,
	}, nil
}

// outputPath picks the output file: the flag, else the plan's out resolved
// against the plan directory, else defaultOut.
func outputPath(flag string, p *plan.Plan) (string, error) {
	switch {
	case flag != "":
		return paths.Expand(flag)
	case p.Out != "":
		return paths.Resolve(p.BaseDir, p.Out)
	default:
		return defaultOut, nil
	}
}

func (a *app) render(ctx context.Context, planPath, outFlag string) error {
	p, err := plan.Load(planPath)
	if err != nil {
		return err
	}
	out, err := outputPath(outFlag, p)
	if err != nil {
		return err
	}

	res, err := render.File(ctx, p, out, render.Options{
		Planner:  a.planner,
		Mixer:    a.mixer,
		Logger:   a.logger,
		Defaults: a.defaults,
	})
	if err != nil {
		if res.Opened {
			if rerr := os.Remove(out); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
				a.logger.Warn("Could not remove partial output", "out", out, "error", rerr)
			}
		}
		return err
	}

	if a.store != nil {
		mem, disk := a.store.Stats()
		a.logger.Debug("Sample cache",
			"memory_hit_rate", fmt.Sprintf("%.0f%%", 100*mem.HitRate()),
			"memory", humanize.IBytes(uint64(mem.Size)), //nolint:gosec
			"disk_hit_rate", fmt.Sprintf("%.0f%%", 100*disk.HitRate()))
	}
	a.logger.Info("Wrote beats", "out", out, "length", res.Duration.Round(time.Millisecond))
	return nil
}

func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
