package wav

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestQuantize(t *testing.T) {
	tests := []struct {
		in   float64
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32767},
		{2, 32767},
		{-3, -32767},
		{0.5, 16384},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := Quantize(tt.in); got != tt.want {
			t.Errorf("Quantize(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")

	const sr, frames = 8000, 10000
	in := &Audio{SampleRate: sr, Channels: 2, Samples: make([]float64, frames*2)}
	for i := 0; i < frames; i++ {
		v := math.Sin(2 * math.Pi * 440 * float64(i) / sr)
		in.Samples[2*i] = v
		in.Samples[2*i+1] = -v / 2
	}

	if err := WriteFile(path, in); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	out, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if out.SampleRate != sr || out.Channels != 2 {
		t.Fatalf("format = %d Hz/%d ch, want %d Hz/2 ch", out.SampleRate, out.Channels, sr)
	}
	if out.Frames() != frames {
		t.Fatalf("frames = %d, want %d", out.Frames(), frames)
	}
	for i, v := range out.Samples {
		if math.Abs(v-in.Samples[i]) > 1.0/32767 {
			t.Fatalf("sample %d = %v, want %v", i, v, in.Samples[i])
		}
	}
	if d := out.Duration(); math.Abs(d-1.25) > 1e-9 {
		t.Errorf("Duration() = %v, want 1.25", d)
	}
}

func TestEmptyFileIsValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	if err := WriteFile(path, &Audio{SampleRate: 48000, Channels: 2}); err != nil {
		t.Fatal(err)
	}

	a, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if a.Frames() != 0 || a.SampleRate != 48000 {
		t.Errorf("got %d frames at %d Hz", a.Frames(), a.SampleRate)
	}
}

func TestMono(t *testing.T) {
	a := &Audio{Channels: 2, SampleRate: 1, Samples: []float64{1, 0, 0.5, 0.5, -1, 1}}
	got := a.Mono()
	want := []float64{0.5, 0.5, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Mono()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	m := &Audio{Channels: 1, SampleRate: 1, Samples: []float64{0.1, 0.2}}
	mono := m.Mono()
	mono[0] = 9
	if m.Samples[0] != 0.1 {
		t.Error("Mono must copy single-channel samples")
	}

	if r := a.Channel(1); r[2] != 1 {
		t.Errorf("Channel(1) = %v", r)
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode(strings.NewReader("definitely not a riff stream")); !errors.Is(err, ErrInvalidFile) {
		t.Errorf("Decode() error = %v, want ErrInvalidFile", err)
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.wav")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile() error = %v, want not-exist", err)
	}
}

func TestWriterRejectsPartialFrames(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "x.wav"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := NewWriter(f, 8000, 2)
	if err := w.Write(0.1, 0.2, 0.3); err == nil {
		t.Error("expected error for partial frame")
	}
	if err := w.Write(0.1, 0.2); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(0, 0); err == nil {
		t.Error("expected error after close")
	}
	if w.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", w.Frames())
	}
}
