package mixin

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/savageogre/opengate/internal/cache"
	"github.com/savageogre/opengate/internal/failure"
	"github.com/savageogre/opengate/internal/wav"
)

func TestResampleConstant(t *testing.T) {
	in := make([]float64, 1000)
	for i := range in {
		in[i] = 0.25
	}
	for _, outSR := range []int{8000, 11025, 22050, 44100, 48000, 96000} {
		out := ResampleLinear(in, 22050, outSR)
		if want := int(1000 * float64(outSR) / 22050); len(out) != want {
			t.Errorf("%d Hz: len = %d, want %d", outSR, len(out), want)
		}
		for i, v := range out {
			if math.Abs(v-0.25) > 1e-12 {
				t.Fatalf("%d Hz: out[%d] = %v", outSR, i, v)
			}
		}
	}
}

func TestResampleRampStaysLinear(t *testing.T) {
	in := make([]float64, 100)
	for i := range in {
		in[i] = float64(i)
	}

	out := ResampleLinear(in, 100, 300)
	if len(out) != 300 {
		t.Fatalf("len = %d", len(out))
	}
	// Up to the last source sample the output is the ramp i/3.
	for i := 0; i <= 297; i++ {
		if want := float64(i) / 3; math.Abs(out[i]-want) > 1e-9 {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want)
		}
	}
	// The tail holds the final sample.
	if out[299] != 99 {
		t.Errorf("tail = %v, want 99", out[299])
	}

	down := ResampleLinear(in, 100, 50)
	for i, v := range down {
		if want := float64(2 * i); math.Abs(v-want) > 1e-9 {
			t.Fatalf("down[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestResamplePassThrough(t *testing.T) {
	in := []float64{0.1, 0.2, 0.3}
	out := ResampleLinear(in, 48000, 48000)
	if len(out) != 3 || out[2] != 0.3 {
		t.Errorf("ResampleLinear = %v", out)
	}
	if ResampleLinear(nil, 8000, 48000) != nil {
		t.Error("empty input should stay empty")
	}
}

func TestSampleOffset(t *testing.T) {
	m := Mixin{Offset: 1.5}
	if got := m.SampleOffset(8000); got != 12000 {
		t.Errorf("SampleOffset = %d", got)
	}
	if got := (Mixin{Offset: -2}).SampleOffset(8000); got != 0 {
		t.Errorf("negative offset = %d", got)
	}
}

func writeSource(t *testing.T, sr, channels int, samples []float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.wav")
	if err := wav.WriteFile(path, &wav.Audio{SampleRate: sr, Channels: channels, Samples: samples}); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMixIn(t *testing.T) {
	// Stereo source averaging to 0.5 on every frame.
	src := make([]float64, 2*4)
	for i := 0; i < 4; i++ {
		src[2*i] = 1
		src[2*i+1] = 0
	}
	path := writeSource(t, 8000, 2, src)

	c := NewCompositor(nil, nil)
	dest := make([]float32, 6)
	dest[0] = 0.1
	if err := c.MixIn(dest, Mixin{Path: path, Gain: 0.5, Offset: 3.0 / 8000}, 8000); err != nil {
		t.Fatal(err)
	}

	want := []float32{0.1, 0, 0, 0.25, 0.25, 0.25}
	for i := range want {
		if math.Abs(float64(dest[i]-want[i])) > 1e-4 {
			t.Errorf("dest[%d] = %v, want %v", i, dest[i], want[i])
		}
	}
}

func TestMixInPastEnd(t *testing.T) {
	path := writeSource(t, 8000, 1, []float64{1, 1})
	dest := make([]float32, 4)
	if err := NewCompositor(nil, nil).MixIn(dest, Mixin{Path: path, Gain: 1, Offset: 1}, 8000); err != nil {
		t.Fatal(err)
	}
	for i, v := range dest {
		if v != 0 {
			t.Errorf("dest[%d] = %v, want 0", i, v)
		}
	}
}

func TestMixInDecodeError(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(bad, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := NewCompositor(nil, nil).MixIn(make([]float32, 10), Mixin{Path: bad, Gain: 1}, 8000)
	if !errors.Is(err, failure.ErrDecode) || !errors.Is(err, wav.ErrInvalidFile) {
		t.Errorf("err = %v", err)
	}

	err = NewCompositor(nil, nil).MixIn(make([]float32, 10), Mixin{Path: bad + ".missing", Gain: 1}, 8000)
	if !errors.Is(err, failure.ErrDecode) {
		t.Errorf("missing file err = %v", err)
	}
}

func TestSamplesUsesCache(t *testing.T) {
	path := writeSource(t, 4000, 1, []float64{0.5, 0.5, 0.5, 0.5})
	store, err := cache.Open(cache.Config{MemoryCapacity: 1 << 20}, nil)
	if err != nil {
		t.Fatal(err)
	}
	c := NewCompositor(store, nil)

	first, err := c.Samples(path, 8000)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 8 {
		t.Fatalf("len = %d, want 8", len(first))
	}

	mem, _ := store.Stats()
	if mem.Items != 1 {
		t.Fatalf("cache items = %d, want 1", mem.Items)
	}

	second, err := c.Samples(path, 8000)
	if err != nil {
		t.Fatal(err)
	}
	if mem, _ := store.Stats(); mem.Hits != 1 {
		t.Errorf("cache hits = %d, want 1", mem.Hits)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached sample %d differs", i)
		}
	}

	if _, err := c.Samples(path, 16000); err != nil {
		t.Fatal(err)
	}
	if mem, _ := store.Stats(); mem.Items != 2 {
		t.Errorf("a different rate must be cached separately, items = %d", mem.Items)
	}
}
