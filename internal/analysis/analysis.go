// Package analysis measures the dominant frequencies of rendered audio.
package analysis

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/savageogre/opengate/internal/wav"
)

// ErrNotStereo is returned when analyzing a file that is not two-channel.
var ErrNotStereo = errors.New("binaural analysis needs a stereo file")

// DominantFrequency returns the frequency in Hz of the strongest FFT bin
// of samples.
func DominantFrequency(samples []float64, sampleRate int) float64 {
	if len(samples) < 2 {
		return 0
	}

	fft := fourier.NewFFT(len(samples))
	coeffs := fft.Coefficients(nil, samples)

	best, bestMag := 0, -1.0
	for i, c := range coeffs {
		if mag := cmplx.Abs(c); mag > bestMag {
			best, bestMag = i, mag
		}
	}
	return fft.Freq(best) * float64(sampleRate)
}

// Report describes the beat in a stereo file.
type Report struct {
	Path       string
	SampleRate int
	Frames     int
	Left       float64 // Hz
	Right      float64 // Hz
}

// Beat is the perceived binaural beat, |left - right|.
func (r Report) Beat() float64 {
	return math.Abs(r.Left - r.Right)
}

// Resolution is the width of one FFT bin in Hz.
func (r Report) Resolution() float64 {
	return float64(r.SampleRate) / float64(cmp.Or(r.Frames, 1))
}

// Analyze measures each channel of a.
func Analyze(a *wav.Audio) (Report, error) {
	if a.Channels != 2 {
		return Report{}, fmt.Errorf("%w: got %d channels", ErrNotStereo, a.Channels)
	}
	return Report{
		SampleRate: a.SampleRate,
		Frames:     a.Frames(),
		Left:       DominantFrequency(a.Channel(0), a.SampleRate),
		Right:      DominantFrequency(a.Channel(1), a.SampleRate),
	}, nil
}

// AnalyzeFile decodes and measures the wav file at path.
func AnalyzeFile(path string) (Report, error) {
	a, err := wav.ReadFile(path)
	if err != nil {
		return Report{}, err
	}
	r, err := Analyze(a)
	if err != nil {
		return Report{}, fmt.Errorf("%s: %w", path, err)
	}
	r.Path = path
	return r, nil
}
