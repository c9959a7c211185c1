package sink

import (
	"errors"
	"os"

	"github.com/savageogre/opengate/internal/failure"
	"github.com/savageogre/opengate/internal/wav"
)

// ErrFinalized is returned when writing to a finalized sink.
var ErrFinalized = errors.New("sink already finalized")

// WAVSink writes 16-bit stereo PCM.
type WAVSink struct {
	path string
	f    *os.File
	w    *wav.Writer
	done bool
}

// NewWAV creates a WAV sink at path.
func NewWAV(path string, sampleRate int) (*WAVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, failure.IO("create sink", path, err)
	}
	return &WAVSink{path: path, f: f, w: wav.NewWriter(f, sampleRate, 2)}, nil
}

// WriteFrame implements Sink.
func (s *WAVSink) WriteFrame(left, right float64) error {
	if s.done {
		return failure.IO("write frame", s.path, ErrFinalized)
	}
	if err := s.w.Write(left, right); err != nil {
		return failure.IO("write frame", s.path, err)
	}
	return nil
}

// Frames returns the number of frames written.
func (s *WAVSink) Frames() int { return s.w.Frames() }

// Finalize implements Sink.
func (s *WAVSink) Finalize() error {
	if s.done {
		return nil
	}
	s.done = true

	err := s.w.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return failure.IO("finalize sink", s.path, err)
	}
	return nil
}
