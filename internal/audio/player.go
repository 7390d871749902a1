package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
)

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	SampleRate int // 44100 or 48000 Hz only
	BufferSize time.Duration
}

// DefaultPlayerConfig returns the default player configuration.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: 44100,
		BufferSize: 100 * time.Millisecond,
	}
}

// Player plays mono PCM on the default output device. Only one oto context
// may exist per process, so create a single Player and reuse it.
type Player struct {
	context    *oto.Context
	sampleRate int

	mu     sync.Mutex
	player *oto.Player
	paused bool
	reader *countingReader
	// CRITICAL: keep the PCM alive while oto reads from it.
	data []byte
}

// NewPlayer opens the audio device.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   config.BufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	return &Player{context: ctx, sampleRate: config.SampleRate}, nil
}

func validateConfig(config PlayerConfig) error {
	if config.SampleRate != 44100 && config.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", config.SampleRate)
	}
	if config.BufferSize < 0 {
		return errors.New("buffer size must not be negative")
	}
	return nil
}

// SampleRate is the rate PCM passed to Play must have.
func (p *Player) SampleRate() int { return p.sampleRate }

// PlayFile decodes path and plays it, blocking until playback ends or ctx
// is canceled.
func (p *Player) PlayFile(ctx context.Context, path string) error {
	pcm, err := DecodePCM(ctx, path, p.sampleRate)
	if err != nil {
		return err
	}
	return p.Play(ctx, pcm)
}

// Play streams PCM and blocks until it finishes or ctx is canceled.
func (p *Player) Play(ctx context.Context, pcm []byte) error {
	if len(pcm) == 0 {
		return errors.New("audio data is empty")
	}

	p.mu.Lock()
	if p.player != nil {
		p.mu.Unlock()
		return errors.New("already playing")
	}
	p.data = pcm
	p.reader = &countingReader{r: bytes.NewReader(p.data)}
	p.player = p.context.NewPlayer(p.reader)
	player := p.player
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		_ = p.player.Close()
		p.player, p.reader, p.data, p.paused = nil, nil, nil, false
		p.mu.Unlock()
	}()

	player.Play()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
			p.mu.Lock()
			paused := p.paused
			p.mu.Unlock()
			if !paused && !player.IsPlaying() {
				return nil
			}
		}
	}
}

// TogglePause pauses or resumes the current playback and reports whether
// it is now paused.
func (p *Player) TogglePause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player == nil {
		return false
	}
	if p.paused {
		p.player.Play()
	} else {
		p.player.Pause()
	}
	p.paused = !p.paused
	return p.paused
}

// Position is how far playback has progressed.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player == nil {
		return 0
	}
	played := int(p.reader.n.Load()) - p.player.BufferedSize()
	if played < 0 {
		played = 0
	}
	return time.Duration(played/2) * time.Second / time.Duration(p.sampleRate)
}

// countingReader tracks how much PCM oto has pulled.
type countingReader struct {
	r *bytes.Reader
	n atomic.Int64
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.n.Add(int64(n))
	return n, err
}
