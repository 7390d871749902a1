package engines

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dgnsrekt/bookvoice/internal/tts"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	mockSampleRate = 22050
	mockFrequency  = 440.0
	mockPerRune    = 10 * time.Millisecond
	mockMinLength  = 200 * time.Millisecond
	mockMaxLength  = 5 * time.Second
)

// MockEngine renders every chunk as a sine tone whose length follows the
// text length. It needs no network or binaries and is used for dry runs
// and tests.
type MockEngine struct {
	// Amplitude of the tone, 0..1. Defaults to 0.5.
	Amplitude float64

	// FailOn, when set, is consulted before each synthesis; a non-nil
	// return fails that chunk.
	FailOn func(text string) error

	tempDir string

	mu    sync.Mutex
	calls []string
}

// NewMockEngine creates a tone generator writing temp files to tempDir.
func NewMockEngine(tempDir string) *MockEngine {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &MockEngine{Amplitude: 0.5, tempDir: tempDir}
}

// Synthesize renders text as a WAV tone.
func (e *MockEngine) Synthesize(ctx context.Context, text string) (tts.Audio, error) {
	if err := ctx.Err(); err != nil {
		return tts.Audio{}, classify(tts.EngineMock, err)
	}
	if err := checkText(tts.EngineMock, text, 0); err != nil {
		return tts.Audio{}, err
	}

	e.mu.Lock()
	e.calls = append(e.calls, text)
	failOn := e.FailOn
	e.mu.Unlock()

	if failOn != nil {
		if err := failOn(text); err != nil {
			return tts.Audio{}, classify(tts.EngineMock, err)
		}
	}

	length := time.Duration(utf8.RuneCountInString(text)) * mockPerRune
	length = min(max(length, mockMinLength), mockMaxLength)

	data, err := Tone(e.tempDir, length, e.Amplitude)
	if err != nil {
		return tts.Audio{}, classify(tts.EngineMock, err)
	}
	return tts.Audio{Data: data, Format: tts.FormatWAV}, nil
}

// Calls returns the texts synthesized so far, in order.
func (e *MockEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// Info returns engine capabilities and configuration.
func (e *MockEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:   string(tts.EngineMock),
		Voice:  "tone",
		Format: tts.FormatWAV,
	}
}

// Validate always succeeds.
func (e *MockEngine) Validate() error { return nil }

// Close releases resources held by the engine.
func (e *MockEngine) Close() error { return nil }

// Tone encodes a mono 16-bit sine wave of the given length as WAV.
func Tone(tempDir string, length time.Duration, amplitude float64) ([]byte, error) {
	if amplitude <= 0 || amplitude > 1 {
		amplitude = 0.5
	}
	n := int(length.Seconds() * mockSampleRate)
	samples := make([]int, n)
	for i := range samples {
		v := amplitude * math.Sin(2*math.Pi*mockFrequency*float64(i)/mockSampleRate)
		samples[i] = int(v * math.MaxInt16)
	}

	f, err := os.CreateTemp(tempDir, "tone-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	buf := &audio.IntBuffer{
		Data:           samples,
		Format:         &audio.Format{SampleRate: mockSampleRate, NumChannels: 1},
		SourceBitDepth: 16,
	}
	enc := wav.NewEncoder(f, mockSampleRate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encoding tone: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding tone: %w", err)
	}
	return os.ReadFile(f.Name())
}

var _ tts.Engine = (*MockEngine)(nil)
