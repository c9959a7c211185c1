package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/log"
)

// Store layers a MemoryCache over an optional DiskCache.
type Store struct {
	l1     *MemoryCache
	l2     *DiskCache
	logger *log.Logger
}

// Open builds a store from cfg.
func Open(cfg Config, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}

	s := &Store{
		l1:     NewMemoryCache(cfg.MemoryCapacity),
		logger: logger,
	}
	if cfg.Dir != "" && cfg.DiskCapacity > 0 {
		l2, err := NewDiskCache(cfg.Dir, cfg.DiskCapacity, cfg.CompressionLevel)
		if err != nil {
			return nil, err
		}
		s.l2 = l2
	}
	return s, nil
}

// Get looks in memory, then on disk. Disk hits are promoted to memory.
func (s *Store) Get(key string) ([]byte, Level) {
	if v, ok := s.l1.Get(key); ok {
		return v, LevelMemory
	}
	if s.l2 == nil {
		return nil, LevelNone
	}
	v, ok := s.l2.Get(key)
	if !ok {
		return nil, LevelNone
	}
	if err := s.l1.Put(key, v); err != nil {
		s.logger.Debug("Not promoting cache entry", "key", key, "error", err)
	}
	return v, LevelDisk
}

// Put stores value in both levels. Values too large for a level skip it.
func (s *Store) Put(key string, value []byte) error {
	if err := s.l1.Put(key, value); err != nil && err != ErrItemTooLarge {
		return err
	}
	if s.l2 != nil {
		if err := s.l2.Put(key, value); err != nil && err != ErrItemTooLarge {
			return err
		}
	}
	return nil
}

// GetSamples returns cached float32 samples for key.
func (s *Store) GetSamples(key string) ([]float32, Level, bool) {
	raw, level := s.Get(key)
	if level == LevelNone {
		return nil, level, false
	}
	samples, err := DecodeSamples(raw)
	if err != nil {
		s.logger.Warn("Discarding corrupt cache entry", "key", key, "error", err)
		s.l1.Delete(key)
		if s.l2 != nil {
			s.l2.Delete(key)
		}
		return nil, LevelNone, false
	}
	return samples, level, true
}

// PutSamples stores float32 samples under key.
func (s *Store) PutSamples(key string, samples []float32) error {
	return s.Put(key, EncodeSamples(samples))
}

// Stats returns the memory and disk counters. The disk stats are zero when
// L2 is disabled.
func (s *Store) Stats() (memory, disk Stats) {
	memory = s.l1.Stats()
	if s.l2 != nil {
		disk = s.l2.Stats()
	}
	return memory, disk
}

// Close flushes the disk index.
func (s *Store) Close() error {
	if s.l2 == nil {
		return nil
	}
	return s.l2.Close()
}

// Key hashes parts into a stable hex key.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

// EncodeSamples serializes samples as little-endian IEEE 754 floats.
func EncodeSamples(samples []float32) []byte {
	out := make([]byte, 4*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

// DecodeSamples reverses EncodeSamples.
func DecodeSamples(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of samples", ErrCorrupted, len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, nil
}
