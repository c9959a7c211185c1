package wav

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

const writeBufferFrames = 4096

// Writer encodes interleaved float frames as 16-bit PCM.
// It does not close the underlying stream.
type Writer struct {
	enc      *gowav.Encoder
	buf      *audio.IntBuffer
	channels int
	frames   int
	started  bool
	closed   bool
}

// NewWriter returns a 16-bit PCM writer on ws.
func NewWriter(ws io.WriteSeeker, sampleRate, channels int) *Writer {
	return &Writer{
		enc:      gowav.NewEncoder(ws, sampleRate, 16, channels, formatPCM),
		channels: channels,
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			Data:           make([]int, 0, writeBufferFrames*channels),
			SourceBitDepth: 16,
		},
	}
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int { return w.frames }

// Write appends interleaved samples. len(samples) must be a multiple of the
// channel count.
func (w *Writer) Write(samples ...float64) error {
	if w.closed {
		return fmt.Errorf("wav: write after close")
	}
	if len(samples)%w.channels != 0 {
		return fmt.Errorf("wav: %d samples is not a whole number of %d-channel frames", len(samples), w.channels)
	}
	for _, s := range samples {
		w.buf.Data = append(w.buf.Data, int(Quantize(s)))
	}
	w.frames += len(samples) / w.channels

	if len(w.buf.Data) >= writeBufferFrames*w.channels {
		return w.flush()
	}
	return nil
}

func (w *Writer) flush() error {
	// The encoder writes its header on the first Write, so an empty flush
	// still yields a valid file.
	if len(w.buf.Data) == 0 && w.started {
		return nil
	}
	w.started = true
	if err := w.enc.Write(w.buf); err != nil {
		return err
	}
	w.buf.Data = w.buf.Data[:0]
	return nil
}

// Close flushes buffered frames and patches the RIFF header sizes.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.flush(); err != nil {
		return err
	}
	return w.enc.Close()
}

// WriteFile writes a as a 16-bit PCM wav file.
func WriteFile(path string, a *Audio) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := NewWriter(f, a.SampleRate, a.Channels)
	if err := w.Write(a.Samples...); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := w.Close(); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return f.Close()
}
