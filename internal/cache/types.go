package cache

import (
	"errors"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrClosed is returned by operations on a closed manager
	ErrClosed = errors.New("cache closed")
)

// Level represents the cache tier
type Level int

const (
	// LevelMemory is the in-process LRU
	LevelMemory Level = iota

	// LevelDisk is the persistent compressed store
	LevelDisk
)

// String returns the string representation of the cache level
func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "L1-Memory"
	case LevelDisk:
		return "L2-Disk"
	default:
		return "Unknown"
	}
}

// Stats holds cache performance metrics
type Stats struct {
	Capacity  int64 // Maximum capacity in bytes
	Size      int64 // Current size in bytes
	Items     int   // Number of items in cache
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate is hits / (hits + misses), or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	if total := s.Hits + s.Misses; total > 0 {
		return float64(s.Hits) / float64(total)
	}
	return 0
}

// Config holds configuration for the cache manager
type Config struct {
	// MemoryCapacity bounds the L1 cache in bytes
	MemoryCapacity int64

	// DiskCapacity bounds the L2 cache in bytes (stored, compressed size)
	DiskCapacity int64

	// DiskPath is the directory for cache files
	DiskPath string

	// CompressionLevel is the zstd level (1-22); 0 disables compression
	CompressionLevel int

	// TTL removes disk entries not used for this long; 0 keeps them
	TTL time.Duration

	// CleanupInterval is how often TTL cleanup runs; 0 disables it
	CleanupInterval time.Duration
}

// DefaultConfig returns default cache configuration rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		MemoryCapacity:   64 * 1024 * 1024,  // 64MB
		DiskCapacity:     1024 * 1024 * 1024, // 1GB
		DiskPath:         dir,
		CompressionLevel: 3,
		TTL:              7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}
