package sink

import (
	"io"
	"os"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"

	"github.com/savageogre/opengate/internal/failure"
)

const flacBlockSize = 4096

// FLACSink writes 16-bit stereo FLAC. Silent or DC blocks are stored as
// constant subframes, everything else verbatim.
// TODO: try fixed-order predictors for tonal blocks.
type FLACSink struct {
	path string
	f    *os.File
	enc  *flac.Encoder

	sampleRate uint32
	left       []int32
	right      []int32
	num        uint64
	frames     int
	done       bool
}

// fileWriter hides Close from the encoder so the sink remains the only
// owner of the file handle.
type fileWriter struct {
	io.WriteSeeker
}

// NewFLAC creates a FLAC sink at path.
func NewFLAC(path string, sampleRate int) (*FLACSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, failure.IO("create sink", path, err)
	}

	info := &meta.StreamInfo{
		BlockSizeMin:  flacBlockSize,
		BlockSizeMax:  flacBlockSize,
		SampleRate:    uint32(sampleRate),
		NChannels:     2,
		BitsPerSample: 16,
	}
	enc, err := flac.NewEncoder(fileWriter{f}, info)
	if err != nil {
		f.Close() //nolint:errcheck
		return nil, failure.IO("create sink", path, err)
	}

	return &FLACSink{
		path:       path,
		f:          f,
		enc:        enc,
		sampleRate: uint32(sampleRate),
		left:       make([]int32, 0, flacBlockSize),
		right:      make([]int32, 0, flacBlockSize),
	}, nil
}

// WriteFrame implements Sink.
func (s *FLACSink) WriteFrame(left, right float64) error {
	if s.done {
		return failure.IO("write frame", s.path, ErrFinalized)
	}
	s.left = append(s.left, int32(Quantize(left)))
	s.right = append(s.right, int32(Quantize(right)))
	s.frames++

	if len(s.left) == flacBlockSize {
		return s.flush()
	}
	return nil
}

// Frames returns the number of frames written.
func (s *FLACSink) Frames() int { return s.frames }

func (s *FLACSink) flush() error {
	n := len(s.left)
	if n == 0 {
		return nil
	}

	fr := &frame.Frame{
		Header: frame.Header{
			HasFixedBlockSize: true,
			BlockSize:         uint16(n),
			SampleRate:        s.sampleRate,
			Channels:          frame.ChannelsLR,
			BitsPerSample:     16,
			Num:               s.num,
		},
		Subframes: []*frame.Subframe{
			subframe(s.left),
			subframe(s.right),
		},
	}
	if err := s.enc.WriteFrame(fr); err != nil {
		return failure.IO("write frame", s.path, err)
	}

	s.num++
	s.left = make([]int32, 0, flacBlockSize)
	s.right = make([]int32, 0, flacBlockSize)
	return nil
}

func subframe(samples []int32) *frame.Subframe {
	pred := frame.PredConstant
	for _, v := range samples[1:] {
		if v != samples[0] {
			pred = frame.PredVerbatim
			break
		}
	}
	return &frame.Subframe{
		SubHeader: frame.SubHeader{Pred: pred},
		Samples:   samples,
		NSamples:  len(samples),
	}
}

// Finalize implements Sink.
func (s *FLACSink) Finalize() error {
	if s.done {
		return nil
	}
	s.done = true

	err := s.flush()
	if cerr := s.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return failure.IO("finalize sink", s.path, err)
	}
	return nil
}
