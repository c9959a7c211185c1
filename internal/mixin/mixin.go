// Package mixin overlays external waveforms onto rendered chunks.
package mixin

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/savageogre/opengate/internal/cache"
	"github.com/savageogre/opengate/internal/failure"
	"github.com/savageogre/opengate/internal/timing"
	"github.com/savageogre/opengate/internal/wav"
)

// Mixin is a resolved overlay: an absolute path to a wav file, mixed in
// at Offset seconds from the start of its chunk.
type Mixin struct {
	Gain   float64
	Path   string
	Offset float64
}

// SampleOffset returns the offset in samples at sampleRate.
func (m Mixin) SampleOffset(sampleRate int) int {
	return timing.SecsToSamples(m.Offset, sampleRate)
}

// ResampleLinear converts input from inSR to outSR by linear interpolation.
// Equal rates return input unchanged.
func ResampleLinear(input []float64, inSR, outSR int) []float64 {
	if inSR == outSR || len(input) == 0 {
		return input
	}

	ratio := float64(outSR) / float64(inSR)
	out := make([]float64, int(float64(len(input))*ratio))
	last := len(input) - 1

	for i := range out {
		pos := float64(i) / ratio
		idx := int(math.Floor(pos))
		if idx >= last {
			out[i] = input[last]
			continue
		}
		frac := pos - float64(idx)
		out[i] = input[idx] + (input[idx+1]-input[idx])*frac
	}
	return out
}

// Compositor loads mixin sources and adds them into chunk buffers.
// Decoded sources are kept in an optional sample cache.
type Compositor struct {
	store  *cache.Store
	logger *log.Logger
}

// NewCompositor returns a compositor. store may be nil.
func NewCompositor(store *cache.Store, logger *log.Logger) *Compositor {
	if logger == nil {
		logger = log.Default()
	}
	return &Compositor{store: store, logger: logger}
}

// Samples returns the mono source at path resampled to outSR.
func (c *Compositor) Samples(path string, outSR int) ([]float32, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, failure.Decode("open mixin", path, err)
	}
	key := cache.Key(path, strconv.FormatInt(info.Size(), 10),
		strconv.FormatInt(info.ModTime().UnixNano(), 10), strconv.Itoa(outSR))

	if c.store != nil {
		if samples, level, ok := c.store.GetSamples(key); ok {
			c.logger.Debug("Mixin source from cache", "path", path, "level", level)
			return samples, nil
		}
	}

	a, err := wav.ReadFile(path)
	if err != nil {
		return nil, failure.Decode("load mixin", path, err)
	}
	c.logger.Debug("Decoded mixin source", "path", path,
		"sample_rate", a.SampleRate, "channels", a.Channels, "frames", a.Frames())

	resampled := ResampleLinear(a.Mono(), a.SampleRate, outSR)
	samples := make([]float32, len(resampled))
	for i, v := range resampled {
		samples[i] = float32(v)
	}

	if c.store != nil {
		if err := c.store.PutSamples(key, samples); err != nil {
			c.logger.Warn("Could not cache mixin source", "path", path, "error", err)
		}
	}
	return samples, nil
}

// MixIn adds m into dest, which starts at the beginning of m's chunk.
// Samples past the end of dest are dropped.
func (c *Compositor) MixIn(dest []float32, m Mixin, outSR int) error {
	samples, err := c.Samples(m.Path, outSR)
	if err != nil {
		return err
	}

	offset := m.SampleOffset(outSR)
	if offset >= len(dest) {
		c.logger.Debug("Mixin starts after its chunk ends", "path", m.Path, "offset", m.Offset)
		return nil
	}

	gain := float32(m.Gain)
	n := min(len(samples), len(dest)-offset)
	for i := 0; i < n; i++ {
		dest[offset+i] += samples[i] * gain
	}
	return nil
}

// String implements fmt.Stringer.
func (m Mixin) String() string {
	return fmt.Sprintf("%s (gain %.2f, +%.2fs)", m.Path, m.Gain, m.Offset)
}
