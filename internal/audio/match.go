package audio

import (
	"fmt"
	"math"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/iFaceless/godub"
)

// VoiceMatcher brings generated audio to the loudness of a reference voice
// sample. Only average loudness (dBFS) is matched; pitch and timbre are
// left alone.
type VoiceMatcher struct {
	mu     sync.RWMutex
	target float64
	ready  bool
}

// Analyze measures the reference sample. On failure the matcher stays
// unarmed and Apply does nothing.
func (m *VoiceMatcher) Analyze(samplePath string) error {
	seg, err := Load(samplePath)
	if err != nil {
		m.Reset()
		return fmt.Errorf("analyzing voice sample: %w", err)
	}
	dbfs := float64(seg.DBFS())
	if math.IsInf(dbfs, 0) || math.IsNaN(dbfs) {
		m.Reset()
		return fmt.Errorf("analyzing voice sample: sample is silent")
	}

	m.mu.Lock()
	m.target, m.ready = dbfs, true
	m.mu.Unlock()

	log.Info("voice sample analyzed", "dbfs", fmt.Sprintf("%.2f", dbfs))
	return nil
}

// Target returns the reference loudness and whether a sample was analyzed.
func (m *VoiceMatcher) Target() (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.target, m.ready
}

// Reset forgets the reference sample.
func (m *VoiceMatcher) Reset() {
	m.mu.Lock()
	m.target, m.ready = 0, false
	m.mu.Unlock()
}

// Apply writes src to dst with its loudness shifted by the difference
// between the reference and its own. Without an analyzed sample, or when
// src is silent, dst is a plain copy. src is never modified, and dst is
// left untouched when the export fails.
func (m *VoiceMatcher) Apply(src, dst string) error {
	target, ok := m.Target()
	if !ok {
		return CopyFile(src, dst)
	}

	seg, err := Load(src)
	if err != nil {
		return err
	}
	current := float64(seg.DBFS())
	if math.IsInf(current, 0) || math.IsNaN(current) {
		return CopyFile(src, dst)
	}

	gain := target - current
	adjusted, err := seg.ApplyGain(godub.Volume(gain))
	if err != nil {
		return fmt.Errorf("applying gain: %w", err)
	}
	log.Debug("voice match", "file", src, "gain_db", fmt.Sprintf("%+.2f", gain))
	return Export(adjusted, dst)
}
