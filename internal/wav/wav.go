// Package wav decodes and encodes RIFF/WAVE files as float samples.
package wav

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	gowav "github.com/go-audio/wav"
)

var (
	// ErrInvalidFile is returned when the input is not a RIFF/WAVE stream.
	ErrInvalidFile = errors.New("not a valid wav file")

	// ErrUnsupportedFormat is returned for encodings the decoder cannot map
	// to float samples.
	ErrUnsupportedFormat = errors.New("unsupported wav encoding")
)

const (
	formatPCM        = 1
	formatFloat      = 3
	formatExtensible = 0xFFFE
)

// Audio is a decoded waveform. Samples are interleaved and normalized to
// [-1, 1].
type Audio struct {
	Samples    []float64
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames.
func (a *Audio) Frames() int {
	if a.Channels == 0 {
		return 0
	}
	return len(a.Samples) / a.Channels
}

// Duration returns the length in seconds.
func (a *Audio) Duration() float64 {
	if a.SampleRate == 0 {
		return 0
	}
	return float64(a.Frames()) / float64(a.SampleRate)
}

// Channel returns the samples of channel ch.
func (a *Audio) Channel(ch int) []float64 {
	out := make([]float64, a.Frames())
	for i := range out {
		out[i] = a.Samples[i*a.Channels+ch]
	}
	return out
}

// Mono averages all channels into a single one.
func (a *Audio) Mono() []float64 {
	if a.Channels == 1 {
		out := make([]float64, len(a.Samples))
		copy(out, a.Samples)
		return out
	}

	out := make([]float64, a.Frames())
	scale := 1 / float64(a.Channels)
	for i := range out {
		var sum float64
		for ch := 0; ch < a.Channels; ch++ {
			sum += a.Samples[i*a.Channels+ch]
		}
		out[i] = sum * scale
	}
	return out
}

// ReadFile decodes the wav file at path.
func ReadFile(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	a, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// Decode reads a complete wav stream.
func Decode(r io.ReadSeeker) (*Audio, error) {
	d := gowav.NewDecoder(r)
	if !d.IsValidFile() {
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
		return nil, ErrInvalidFile
	}

	bits := int(d.BitDepth)
	channels := int(d.NumChans)
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, channels)
	}

	var convert func(int) float64
	switch d.WavAudioFormat {
	case formatPCM, formatExtensible:
		switch bits {
		case 8:
			// 8-bit wav is unsigned.
			convert = func(v int) float64 { return clamp(float64(v-128) / 127) }
		case 16, 24, 32:
			full := float64(int64(1)<<(bits-1) - 1)
			convert = func(v int) float64 { return clamp(float64(v) / full) }
		default:
			return nil, fmt.Errorf("%w: %d-bit pcm", ErrUnsupportedFormat, bits)
		}
	case formatFloat:
		if bits != 32 {
			return nil, fmt.Errorf("%w: %d-bit float", ErrUnsupportedFormat, bits)
		}
		convert = func(v int) float64 {
			return float64(math.Float32frombits(uint32(int32(v))))
		}
	default:
		return nil, fmt.Errorf("%w: format tag %#x", ErrUnsupportedFormat, d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = convert(v)
	}

	return &Audio{
		Samples:    samples,
		SampleRate: int(d.SampleRate),
		Channels:   channels,
	}, nil
}

// Quantize maps a float sample to 16-bit PCM: round(clamp(x, -1, 1) * 32767).
func Quantize(x float64) int16 {
	return int16(math.Round(clamp(x) * math.MaxInt16))
}

func clamp(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return min(max(x, -1), 1)
}
