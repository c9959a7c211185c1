package cache

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryCacheLRU(t *testing.T) {
	c := NewMemoryCache(30)

	for i := 0; i < 3; i++ {
		if err := c.Put(fmt.Sprintf("k%d", i), make([]byte, 10)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	// Touch k0 so k1 becomes the eviction candidate.
	if _, ok := c.Get("k0"); !ok {
		t.Fatal("k0 missing")
	}
	if err := c.Put("k3", make([]byte, 10)); err != nil {
		t.Fatal(err)
	}

	if c.Contains("k1") {
		t.Error("k1 should have been evicted")
	}
	for _, k := range []string{"k0", "k2", "k3"} {
		if !c.Contains(k) {
			t.Errorf("%s should still be cached", k)
		}
	}

	s := c.Stats()
	if s.Size != 30 || s.Items != 3 || s.Evictions != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.Hits != 1 || s.HitRate() != 1 {
		t.Errorf("hits = %d, rate = %v", s.Hits, s.HitRate())
	}
}

func TestMemoryCacheReplace(t *testing.T) {
	c := NewMemoryCache(100)
	c.Put("a", make([]byte, 40)) //nolint:errcheck
	c.Put("a", make([]byte, 10)) //nolint:errcheck
	if c.Size() != 10 {
		t.Errorf("Size() = %d, want 10", c.Size())
	}
	if err := c.Put("big", make([]byte, 101)); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Put(big) = %v, want ErrItemTooLarge", err)
	}
	c.Delete("a")
	if c.Size() != 0 || c.Contains("a") {
		t.Error("Delete did not remove entry")
	}
}

func TestDiskCachePersists(t *testing.T) {
	dir := t.TempDir()
	value := bytes.Repeat([]byte("opengate"), 1000)

	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := dc.Put("key", value); err != nil {
		t.Fatal(err)
	}
	if s := dc.Stats(); s.Size >= int64(len(value)) {
		t.Errorf("repetitive value should compress: %d >= %d", s.Size, len(value))
	}
	if err := dc.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, ok := reopened.Get("key")
	if !ok {
		t.Fatal("entry lost across reopen")
	}
	if !bytes.Equal(got, value) {
		t.Error("value mismatch after reopen")
	}
}

func TestDiskCacheForgetsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	dc.Put("gone", []byte("abc")) //nolint:errcheck
	if err := dc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, fileName("gone"))); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if reopened.Contains("gone") {
		t.Error("index should drop entries whose file is missing")
	}
	if s := reopened.Stats(); s.Size != 0 {
		t.Errorf("size = %d, want 0", s.Size)
	}
}

func TestDiskCacheSweepsUnindexedFiles(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := dc.Put("kept", []byte("abc")); err != nil {
		t.Fatal(err)
	}
	if err := dc.Close(); err != nil {
		t.Fatal(err)
	}

	// A process that dies before Close leaves values the index never saw.
	crashed, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := crashed.Put("orphan", []byte("defg")); err != nil {
		t.Fatal(err)
	}
	stray := []string{
		fileName("orphan"),
		fileName("interrupted") + ".tmp",
		indexFile + ".tmp",
	}
	for _, name := range stray[1:] {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	reopened, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	for _, name := range stray {
		if _, err := os.Stat(filepath.Join(dir, name)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s survived reopening: %v", name, err)
		}
	}
	if got, ok := reopened.Get("kept"); !ok || string(got) != "abc" {
		t.Errorf("kept = %q, %v", got, ok)
	}
	if s := reopened.Stats(); s.Items != 1 || s.Size != 3 {
		t.Errorf("stats = %+v, want one 3-byte entry", s)
	}
}

func TestDiskCacheEviction(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 25, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close()

	dc.Put("a", make([]byte, 10)) //nolint:errcheck
	dc.Put("b", make([]byte, 10)) //nolint:errcheck
	dc.Put("c", make([]byte, 10)) //nolint:errcheck

	if dc.Contains("a") {
		t.Error("a should have been evicted")
	}
	if !dc.Contains("b") || !dc.Contains("c") {
		t.Error("b and c should remain")
	}
}

func TestStorePromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)

	s, err := Open(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	samples := []float32{0, 0.5, -0.25, 1}
	if err := s.PutSamples("bell", samples); err != nil {
		t.Fatal(err)
	}
	if _, level, _ := s.GetSamples("bell"); level != LevelMemory {
		t.Errorf("level = %v, want memory", level)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	got, level, ok := s2.GetSamples("bell")
	if !ok || level != LevelDisk {
		t.Fatalf("GetSamples = %v, %v; want disk hit", ok, level)
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], samples[i])
		}
	}
	if _, level, _ := s2.GetSamples("bell"); level != LevelMemory {
		t.Errorf("second lookup level = %v, want memory", level)
	}

	mem, disk := s2.Stats()
	if mem.Items != 1 || disk.Items != 1 {
		t.Errorf("items: memory %d, disk %d", mem.Items, disk.Items)
	}
}

func TestStoreWithoutDisk(t *testing.T) {
	s, err := Open(Config{MemoryCapacity: 1024}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, level := s.Get("missing"); level != LevelNone {
		t.Errorf("level = %v", level)
	}
	if err := s.Close(); err != nil {
		t.Error(err)
	}
}

func TestDecodeSamplesRejectsPartial(t *testing.T) {
	if _, err := DecodeSamples([]byte{1, 2, 3}); !errors.Is(err, ErrCorrupted) {
		t.Errorf("err = %v, want ErrCorrupted", err)
	}
}

func TestKey(t *testing.T) {
	if Key("a", "bc") == Key("ab", "c") {
		t.Error("key parts must be separated")
	}
	if Key("x") != Key("x") {
		t.Error("key must be stable")
	}
}
