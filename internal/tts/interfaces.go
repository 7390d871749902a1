package tts

import (
	"context"
)

// Engine defines the contract for text-to-speech engines.
// Implementations include Edge TTS, gTTS, Piper (offline) and the cloud
// providers. Callers send one chunk at a time and never in parallel.
type Engine interface {
	// Synthesize converts text to an encoded audio file.
	// The implementation must handle timeout protection internally.
	Synthesize(ctx context.Context, text string) (Audio, error)

	// Info returns engine capabilities and configuration.
	Info() EngineInfo

	// Validate checks if the engine is properly configured and available.
	// This should verify binaries, model files or credentials.
	Validate() error

	// Close releases any resources held by the engine.
	Close() error
}
