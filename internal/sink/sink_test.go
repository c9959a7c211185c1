package sink

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mewkiz/flac"

	"github.com/savageogre/opengate/internal/failure"
	"github.com/savageogre/opengate/internal/wav"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"out.wav", FormatWAV, true},
		{"OUT.WAV", FormatWAV, true},
		{"dir.v2/out.flac", FormatFLAC, true},
		{"out.Flac", FormatFLAC, true},
		{"out.mp3", FormatWAV, false},
		{"out", FormatWAV, false},
	}
	for _, tt := range tests {
		got, ok := DetectFormat(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DetectFormat(%q) = %v, %v; want %v, %v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

func writeRamp(t *testing.T, s Sink, frames int) {
	t.Helper()
	for i := 0; i < frames; i++ {
		v := math.Sin(2 * math.Pi * float64(i) / 100)
		if err := s.WriteFrame(v, -v); err != nil {
			t.Fatalf("WriteFrame(%d): %v", i, err)
		}
	}
}

func TestWAVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	s, err := New(path, 8000, nil)
	if err != nil {
		t.Fatal(err)
	}
	writeRamp(t, s, 5000)
	if err := s.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := s.Finalize(); err != nil {
		t.Errorf("second Finalize: %v", err)
	}

	a, err := wav.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if a.Channels != 2 || a.SampleRate != 8000 || a.Frames() != 5000 {
		t.Fatalf("got %d ch, %d Hz, %d frames", a.Channels, a.SampleRate, a.Frames())
	}
	if l, r := a.Samples[50], a.Samples[51]; math.Abs(l+r) > 1e-4 {
		t.Errorf("channels not mirrored: %v %v", l, r)
	}
}

func TestUnknownExtensionFallsBackToWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ogg")
	s, err := New(path, 8000, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*WAVSink); !ok {
		t.Fatalf("New() = %T, want *WAVSink", s)
	}
	writeRamp(t, s, 10)
	if err := s.Finalize(); err != nil {
		t.Fatal(err)
	}
	if _, err := wav.ReadFile(path); err != nil {
		t.Errorf("fallback output is not a wav file: %v", err)
	}
}

func TestFLACSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.flac")
	s, err := New(path, 48000, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*FLACSink); !ok {
		t.Fatalf("New() = %T, want *FLACSink", s)
	}

	// Leading silence exercises constant subframes.
	for i := 0; i < flacBlockSize; i++ {
		if err := s.WriteFrame(0, 0); err != nil {
			t.Fatal(err)
		}
	}
	writeRamp(t, s, 10000)
	if err := s.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	stream, err := flac.Open(path)
	if err != nil {
		t.Fatalf("flac.Open: %v", err)
	}
	defer stream.Close()

	if stream.Info.NChannels != 2 || stream.Info.SampleRate != 48000 || stream.Info.BitsPerSample != 16 {
		t.Fatalf("stream info = %+v", stream.Info)
	}

	var frames int
	var samples []int32
	for {
		f, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ParseNext: %v", err)
		}
		frames += int(f.BlockSize)
		samples = append(samples, f.Subframes[0].Samples...)
	}
	if frames != flacBlockSize+10000 {
		t.Errorf("decoded %d frames, want %d", frames, flacBlockSize+10000)
	}
	want := int32(Quantize(math.Sin(2 * math.Pi * 25 / 100)))
	if got := samples[flacBlockSize+25]; got != want {
		t.Errorf("sample = %d, want %d", got, want)
	}
	if samples[0] != 0 {
		t.Errorf("leading sample = %d, want 0", samples[0])
	}
}

func TestWriteAfterFinalize(t *testing.T) {
	for _, name := range []string{"a.wav", "a.flac"} {
		t.Run(name, func(t *testing.T) {
			s, err := New(filepath.Join(t.TempDir(), name), 8000, nil)
			if err != nil {
				t.Fatal(err)
			}
			if err := s.Finalize(); err != nil {
				t.Fatal(err)
			}
			err = s.WriteFrame(0, 0)
			if !errors.Is(err, ErrFinalized) || !errors.Is(err, failure.ErrIO) {
				t.Errorf("WriteFrame after Finalize = %v", err)
			}
		})
	}
}

func TestCreateFailureIsIOError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "out.wav")
	_, err := New(path, 8000, nil)
	if !errors.Is(err, failure.ErrIO) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("New() error = %v", err)
	}
}
