// Package sink writes rendered stereo frames to an output file.
package sink

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/savageogre/opengate/internal/wav"
)

// Sink accepts stereo frames of floats in [-1, 1].
// Finalize flushes and closes the destination; it is safe to call twice.
type Sink interface {
	WriteFrame(left, right float64) error
	Finalize() error
}

// Format is an output container.
type Format int

const (
	FormatWAV Format = iota
	FormatFLAC
)

func (f Format) String() string {
	switch f {
	case FormatFLAC:
		return "flac"
	default:
		return "wav"
	}
}

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	return "." + f.String()
}

// DetectFormat maps a path's extension to a format. ok is false when the
// extension is not recognized, in which case WAV is returned.
func DetectFormat(path string) (f Format, ok bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FormatWAV, true
	case ".flac":
		return FormatFLAC, true
	default:
		return FormatWAV, false
	}
}

// New creates the file at path and returns a sink for the format implied by
// its extension. Unknown extensions fall back to WAV with a warning.
func New(path string, sampleRate int, logger *log.Logger) (Sink, error) {
	if logger == nil {
		logger = log.Default()
	}

	format, ok := DetectFormat(path)
	if !ok {
		logger.Warn("Unrecognized output extension, writing WAV", "path", path, "ext", filepath.Ext(path))
	}
	logger.Debug("Creating sink", "path", path, "format", format, "sample_rate", sampleRate)

	if format == FormatFLAC {
		s, err := NewFLAC(path, sampleRate)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	s, err := NewWAV(path, sampleRate)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Quantize converts a float sample to 16-bit PCM.
func Quantize(x float64) int16 {
	return wav.Quantize(x)
}
