package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestManager(t *testing.T, dir string) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		MemoryCapacity:   16 * 1024,
		DiskCapacity:     64 * 1024,
		DiskPath:         dir,
		CompressionLevel: 3,
	})
	if err != nil {
		t.Fatalf("Failed to create cache manager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestManager_BasicOperations(t *testing.T) {
	m := newTestManager(t, t.TempDir())

	key := Key("edge", "en-US-AriaNeural", "Hello world")
	value := []byte("fake mp3 data")

	if err := m.Put(key, value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, ok := m.Get(key)
	if !ok || !bytes.Equal(got, value) {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	m.Delete(key)
	if _, ok := m.Get(key); ok {
		t.Error("Key still exists after delete")
	}
}

func TestManager_PersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	key := Key("gtts", "en", "Chapter 1")
	// Compressible payload larger than the compression threshold.
	value := bytes.Repeat([]byte("audio "), 1000)

	first := newTestManager(t, dir)
	if err := first.Put(key, value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*"+extCompressed))
	if len(matches) != 1 {
		t.Fatalf("expected one compressed file, found %v", matches)
	}

	second := newTestManager(t, dir)
	got, ok := second.Get(key)
	if !ok || !bytes.Equal(got, value) {
		t.Fatal("entry did not survive a restart")
	}
	if s := second.Stats()[LevelDisk]; s.Hits != 1 {
		t.Errorf("expected a disk hit, got %+v", s)
	}

	// Promoted to memory: the next lookup does not touch disk.
	second.Get(key)
	if s := second.Stats()[LevelDisk]; s.Hits != 1 {
		t.Errorf("expected memory hit after promotion, disk stats %+v", s)
	}
}

func TestManager_LargeItemsSkipMemory(t *testing.T) {
	m := newTestManager(t, t.TempDir())

	key := Key("piper", "amy", "long chunk")
	value := make([]byte, 32*1024) // larger than MemoryCapacity
	if err := m.Put(key, value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, ok := m.Get(key); !ok {
		t.Fatal("large item should be served from disk")
	}
}

func TestManager_Clear(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir)

	for _, text := range []string{"a", "b", "c"} {
		_ = m.Put(Key("mock", "tone", text), []byte(text))
	}
	m.Clear()

	for level, s := range m.Stats() {
		if s.Items != 0 || s.Size != 0 {
			t.Errorf("%s not empty after clear: %+v", level, s)
		}
	}
	files, _ := os.ReadDir(dir)
	if len(files) != 0 {
		t.Errorf("cache directory not empty: %d files", len(files))
	}
}

func TestManager_TTLCleanup(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(Config{DiskPath: dir, TTL: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	old := Key("mock", "tone", "old")
	fresh := Key("mock", "tone", "fresh")
	_ = m.Put(old, []byte("old"))
	_ = m.Put(fresh, []byte("fresh"))

	// Age the first entry on disk and reopen so the scan picks it up.
	past := time.Now().Add(-2 * time.Hour)
	path := filepath.Join(dir, fileID(old)+extRaw)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}
	m.Close()

	m, err = NewManager(Config{DiskPath: dir, TTL: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	if removed := m.Cleanup(); removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, ok := m.Get(old); ok {
		t.Error("expired entry still present")
	}
	if _, ok := m.Get(fresh); !ok {
		t.Error("fresh entry was removed")
	}
}

func TestManager_PutAfterClose(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	_ = m.Close()
	if err := m.Put("k", []byte("v")); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestDiskCache_Eviction(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 100, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close()

	_ = dc.Put("a", make([]byte, 40))
	time.Sleep(5 * time.Millisecond)
	_ = dc.Put("b", make([]byte, 40))
	time.Sleep(5 * time.Millisecond)
	_ = dc.Put("c", make([]byte, 40))

	if dc.Contains("a") {
		t.Error("oldest entry should have been evicted")
	}
	if !dc.Contains("b") || !dc.Contains("c") {
		t.Error("newer entries should remain")
	}
	if s := dc.Stats(); s.Size > 100 || s.Evictions != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestDiskCache_CorruptEntryIsDropped(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close()

	_ = dc.Put("k", bytes.Repeat([]byte("x"), 4096))
	path := filepath.Join(dir, fileID("k")+extCompressed)
	if err := os.WriteFile(path, []byte("not zstd"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := dc.Get("k"); ok {
		t.Fatal("corrupt entry should miss")
	}
	if dc.Contains("k") {
		t.Error("corrupt entry should be removed from the index")
	}
}

func TestKey(t *testing.T) {
	a := Key("edge", "en-US-AriaNeural", "hello")
	if len(a) != 32 {
		t.Errorf("key length = %d", len(a))
	}
	if a != Key("edge", "en-US-AriaNeural", "hello") {
		t.Error("key is not deterministic")
	}
	for _, other := range []string{
		Key("gtts", "en-US-AriaNeural", "hello"),
		Key("edge", "en-US-GuyNeural", "hello"),
		Key("edge", "en-US-AriaNeural", "hello!"),
	} {
		if other == a {
			t.Error("different inputs produced the same key")
		}
	}
}

func TestLevelString(t *testing.T) {
	if LevelMemory.String() != "L1-Memory" || LevelDisk.String() != "L2-Disk" || Level(9).String() != "Unknown" {
		t.Error("unexpected level names")
	}
}
