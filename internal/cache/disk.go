package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const indexFile = "index.gob"

// DiskCache persists values as individual files under a directory, bounded
// by their on-disk size. Eviction is least recently accessed first.
type DiskCache struct {
	mu       sync.Mutex
	dir      string
	capacity int64
	size     int64
	index    map[string]*diskEntry
	stats    Stats

	enc *zstd.Encoder
	dec *zstd.Decoder
}

type diskEntry struct {
	File       string // base name inside dir
	Size       int64  // bytes on disk
	RawSize    int64
	Compressed bool
	Created    time.Time
	LastAccess time.Time
}

// NewDiskCache opens (or creates) a cache in dir. A compressionLevel of 0
// stores values uncompressed.
func NewDiskCache(dir string, capacity int64, compressionLevel int) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	dc := &DiskCache{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
	}

	if compressionLevel > 0 {
		var err error
		dc.enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
	}
	// Entries written at a different level may still be compressed.
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	dc.dec = dec

	// An unreadable index starts the cache empty.
	_ = dc.loadIndex()
	dc.sweep()
	return dc, nil
}

// Get reads and decompresses the value for key.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(filepath.Join(dc.dir, entry.File))
	if err == nil && entry.Compressed {
		data, err = dc.dec.DecodeAll(data, nil)
	}
	if err != nil {
		dc.drop(key, entry)
		dc.stats.Misses++
		return nil, false
	}

	entry.LastAccess = time.Now()
	dc.stats.Hits++
	return data, true
}

// Put writes value for key, evicting old entries past capacity.
func (dc *DiskCache) Put(key string, value []byte) error {
	data, compressed := value, false
	if dc.enc != nil {
		if packed := dc.enc.EncodeAll(value, nil); len(packed) < len(value) {
			data, compressed = packed, true
		}
	}

	dc.mu.Lock()
	defer dc.mu.Unlock()

	n := int64(len(data))
	if n > dc.capacity {
		return ErrItemTooLarge
	}

	if old, ok := dc.index[key]; ok {
		dc.drop(key, old)
	}
	for dc.size+n > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}

	name := fileName(key)
	if err := writeFileAtomic(filepath.Join(dc.dir, name), data); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}

	now := time.Now()
	dc.index[key] = &diskEntry{
		File:       name,
		Size:       n,
		RawSize:    int64(len(value)),
		Compressed: compressed,
		Created:    now,
		LastAccess: now,
	}
	dc.size += n
	return nil
}

// Contains reports whether key is indexed.
func (dc *DiskCache) Contains(key string) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	_, ok := dc.index[key]
	return ok
}

// Delete removes key and its file.
func (dc *DiskCache) Delete(key string) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if entry, ok := dc.index[key]; ok {
		dc.drop(key, entry)
	}
}

// Stats returns a snapshot of the counters.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	s := dc.stats
	s.Capacity = dc.capacity
	s.Size = dc.size
	s.Items = len(dc.index)
	return s
}

// Close persists the index.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.enc != nil {
		dc.enc.Close() //nolint:errcheck
	}
	dc.dec.Close()
	return dc.saveIndex()
}

// drop must be called with the lock held.
func (dc *DiskCache) drop(key string, entry *diskEntry) {
	os.Remove(filepath.Join(dc.dir, entry.File)) //nolint:errcheck
	delete(dc.index, key)
	dc.size -= entry.Size
}

func (dc *DiskCache) evictOldest() {
	var oldestKey string
	var oldest *diskEntry
	for key, entry := range dc.index {
		if oldest == nil || entry.LastAccess.Before(oldest.LastAccess) {
			oldestKey, oldest = key, entry
		}
	}
	if oldest == nil {
		return
	}
	dc.drop(oldestKey, oldest)
	dc.stats.Evictions++
	dc.stats.LastEvict = time.Now()
}

func (dc *DiskCache) loadIndex() error {
	f, err := os.Open(filepath.Join(dc.dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	var index map[string]*diskEntry
	if err := gob.NewDecoder(f).Decode(&index); err != nil {
		return err
	}

	// Entries whose files were removed behind our back are forgotten.
	for key, entry := range index {
		info, err := os.Stat(filepath.Join(dc.dir, entry.File))
		if err != nil || info.Size() != entry.Size {
			continue
		}
		dc.index[key] = entry
		dc.size += entry.Size
	}
	return nil
}

// sweep removes value files the index does not know about, and temporary
// files left by interrupted writes. The index is only saved on Close, so a
// crashed process leaves its entries orphaned here.
func (dc *DiskCache) sweep() {
	known := make(map[string]bool, len(dc.index))
	for _, entry := range dc.index {
		known[entry.File] = true
	}
	for _, pattern := range []string{"*.bin", "*.tmp"} {
		matches, _ := filepath.Glob(filepath.Join(dc.dir, pattern))
		for _, path := range matches {
			if !known[filepath.Base(path)] {
				os.Remove(path) //nolint:errcheck
			}
		}
	}
}

func (dc *DiskCache) saveIndex() error {
	path := filepath.Join(dc.dir, indexFile)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(f).Encode(dc.index)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp) //nolint:errcheck
		return err
	}
	return os.Rename(tmp, path)
}

func fileName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16]) + ".bin"
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return err
	}
	return os.Rename(tmp, path)
}
