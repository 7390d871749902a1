package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
)

const (
	extCompressed = ".zst"
	extRaw        = ".audio"
)

// DiskCache implements the L2 cache as a directory of files, one per
// entry, optionally zstd-compressed. The directory itself is the index:
// it is scanned on open and file modification times record last use.
type DiskCache struct {
	basePath string
	capacity int64
	size     int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*diskEntry

	mu    sync.Mutex
	stats Stats
}

type diskEntry struct {
	path       string
	size       int64
	lastAccess time.Time
}

// NewDiskCache opens (or creates) a disk cache in basePath. A
// compressionLevel of 0 stores entries uncompressed.
func NewDiskCache(basePath string, capacity int64, compressionLevel int) (*DiskCache, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dc := &DiskCache{
		basePath: basePath,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
	}

	if compressionLevel > 0 {
		var err error
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		dc.decoder, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
	}

	if err := dc.scan(); err != nil {
		return nil, err
	}
	return dc, nil
}

// scan rebuilds the index from the cache directory.
func (dc *DiskCache) scan() error {
	entries, err := os.ReadDir(dc.basePath)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		ext := filepath.Ext(name)
		if e.IsDir() || (ext != extCompressed && ext != extRaw) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		id := strings.TrimSuffix(name, ext)
		dc.index[id] = &diskEntry{
			path:       filepath.Join(dc.basePath, name),
			size:       info.Size(),
			lastAccess: info.ModTime(),
		}
		dc.size += info.Size()
	}
	log.Debug("disk cache opened", "path", dc.basePath, "items", len(dc.index), "bytes", dc.size)
	return nil
}

// Get retrieves a value from the disk cache.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	id := fileID(key)
	entry, ok := dc.index[id]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.path)
	if err == nil && strings.HasSuffix(entry.path, extCompressed) {
		if dc.decoder == nil {
			err = fmt.Errorf("compressed entry with compression disabled")
		} else {
			data, err = dc.decoder.DecodeAll(data, nil)
		}
	}
	if err != nil {
		// Missing or corrupted file, drop it.
		log.Debug("dropping unreadable cache entry", "path", entry.path, "err", err)
		dc.remove(id)
		dc.stats.Misses++
		return nil, false
	}

	now := time.Now()
	entry.lastAccess = now
	_ = os.Chtimes(entry.path, now, now)

	dc.stats.Hits++
	return data, true
}

// Put stores a value in the disk cache.
func (dc *DiskCache) Put(key string, value []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	data, ext := value, extRaw
	if dc.encoder != nil && len(value) > 1024 {
		if c := dc.encoder.EncodeAll(value, nil); len(c) < len(value) {
			data, ext = c, extCompressed
		}
	}

	n := int64(len(data))
	if n > dc.capacity {
		return ErrItemTooLarge
	}

	id := fileID(key)
	if _, ok := dc.index[id]; ok {
		dc.remove(id)
	}
	for dc.size+n > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}

	path := filepath.Join(dc.basePath, id+ext)
	if err := writeFile(path, data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	dc.index[id] = &diskEntry{path: path, size: n, lastAccess: time.Now()}
	dc.size += n
	return nil
}

// Delete removes an entry from the disk cache.
func (dc *DiskCache) Delete(key string) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.remove(fileID(key))
}

// Clear removes all entries from the disk cache.
func (dc *DiskCache) Clear() {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	for id := range dc.index {
		dc.remove(id)
	}
}

// Contains checks if a key exists without updating its access time.
func (dc *DiskCache) Contains(key string) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	_, ok := dc.index[fileID(key)]
	return ok
}

// RemoveOlderThan removes entries last used before cutoff.
func (dc *DiskCache) RemoveOlderThan(cutoff time.Time) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	removed := 0
	for id, entry := range dc.index {
		if entry.lastAccess.Before(cutoff) {
			dc.remove(id)
			removed++
		}
	}
	return removed
}

// Stats returns cache statistics.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	s := dc.stats
	s.Capacity = dc.capacity
	s.Size = dc.size
	s.Items = len(dc.index)
	return s
}

// Close releases the zstd encoder and decoder.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.decoder != nil {
		dc.decoder.Close()
	}
	if dc.encoder != nil {
		return dc.encoder.Close()
	}
	return nil
}

// evictOldest must be called with the lock held.
func (dc *DiskCache) evictOldest() {
	ids := make([]string, 0, len(dc.index))
	for id := range dc.index {
		ids = append(ids, id)
	}
	oldest := slices.MinFunc(ids, func(a, b string) int {
		return dc.index[a].lastAccess.Compare(dc.index[b].lastAccess)
	})
	dc.remove(oldest)
	dc.stats.Evictions++
}

// remove must be called with the lock held.
func (dc *DiskCache) remove(id string) {
	entry, ok := dc.index[id]
	if !ok {
		return
	}
	_ = os.Remove(entry.path)
	dc.size -= entry.size
	delete(dc.index, id)
}

// fileID maps a cache key to a file name stem.
func fileID(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:16])
}

// writeFile writes to a temp file first, then renames (atomic on most systems).
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
