package cache

import (
	"errors"
	"time"
)

var (
	// ErrItemTooLarge is returned when a value exceeds a level's capacity.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCorrupted is returned when a cached value cannot be decoded.
	ErrCorrupted = errors.New("cache data corrupted")
)

// Level identifies where a value was found.
type Level int

const (
	LevelNone Level = iota
	LevelMemory
	LevelDisk
)

func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "L1-memory"
	case LevelDisk:
		return "L2-disk"
	default:
		return "miss"
	}
}

// Stats holds counters for one cache level.
type Stats struct {
	Capacity  int64
	Size      int64
	Items     int
	Hits      int64
	Misses    int64
	Evictions int64
	LastEvict time.Time
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// Config sizes the two levels. A zero DiskCapacity or empty Dir disables L2.
type Config struct {
	MemoryCapacity   int64  // bytes
	DiskCapacity     int64  // bytes, measured after compression
	Dir              string // L2 directory
	CompressionLevel int    // zstd level 1-22, 0 stores raw
}

// DefaultConfig returns 64 MiB of memory and 1 GiB of disk at level 3.
func DefaultConfig(dir string) Config {
	return Config{
		MemoryCapacity:   64 << 20,
		DiskCapacity:     1 << 30,
		Dir:              dir,
		CompressionLevel: 3,
	}
}
