package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Manager coordinates the memory and disk levels. Disk hits are promoted
// to memory; writes go to both levels.
type Manager struct {
	memory *MemoryCache
	disk   *DiskCache
	config Config

	cleanupStop chan struct{}
	cleanupWg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewManager creates a cache manager with the specified configuration.
func NewManager(config Config) (*Manager, error) {
	if config.DiskPath == "" {
		return nil, errors.New("cache directory is required")
	}
	if config.MemoryCapacity <= 0 || config.DiskCapacity <= 0 {
		def := DefaultConfig(config.DiskPath)
		if config.MemoryCapacity <= 0 {
			config.MemoryCapacity = def.MemoryCapacity
		}
		if config.DiskCapacity <= 0 {
			config.DiskCapacity = def.DiskCapacity
		}
	}

	disk, err := NewDiskCache(config.DiskPath, config.DiskCapacity, config.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk cache: %w", err)
	}

	m := &Manager{
		memory:      NewMemoryCache(config.MemoryCapacity),
		disk:        disk,
		config:      config,
		cleanupStop: make(chan struct{}),
	}
	if config.CleanupInterval > 0 && config.TTL > 0 {
		m.startCleanupRoutine()
	}
	return m, nil
}

// Get checks memory first, then disk.
func (m *Manager) Get(key string) ([]byte, bool) {
	if data, ok := m.memory.Get(key); ok {
		return data, true
	}
	if data, ok := m.disk.Get(key); ok {
		// Promotion is best-effort.
		_ = m.memory.Put(key, data)
		return data, true
	}
	return nil, false
}

// Put stores a value in both levels. An item too large for memory is
// still written to disk.
func (m *Manager) Put(key string, value []byte) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if err := m.memory.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
		return fmt.Errorf("L1 cache error: %w", err)
	}
	if err := m.disk.Put(key, value); err != nil {
		return fmt.Errorf("L2 cache error: %w", err)
	}
	return nil
}

// Delete removes an entry from all levels.
func (m *Manager) Delete(key string) {
	m.memory.Delete(key)
	m.disk.Delete(key)
}

// Clear removes all entries from all levels.
func (m *Manager) Clear() {
	m.memory.Clear()
	m.disk.Clear()
}

// Stats returns statistics per level.
func (m *Manager) Stats() map[Level]Stats {
	return map[Level]Stats{
		LevelMemory: m.memory.Stats(),
		LevelDisk:   m.disk.Stats(),
	}
}

// Close stops the cleanup routine and releases the disk level.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.cleanupStop)
	m.cleanupWg.Wait()

	if err := m.disk.Close(); err != nil {
		return fmt.Errorf("failed to close disk cache: %w", err)
	}
	return nil
}

// Key builds a cache key for one synthesized chunk. Everything that
// changes the audio is part of it.
func Key(engine, voice, text string) string {
	data := fmt.Sprintf("%s|%s|%s", engine, voice, text)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16]) // Use first 16 bytes for shorter keys
}

func (m *Manager) startCleanupRoutine() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	m.cleanupWg.Add(1)

	go func() {
		defer m.cleanupWg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.Cleanup()
			case <-m.cleanupStop:
				return
			}
		}
	}()
}

// Cleanup removes disk entries unused for longer than the TTL.
func (m *Manager) Cleanup() int {
	if m.config.TTL <= 0 {
		return 0
	}
	removed := m.disk.RemoveOlderThan(time.Now().Add(-m.config.TTL))
	if removed > 0 {
		log.Info("cache cleanup", "removed", removed)
	}
	return removed
}
