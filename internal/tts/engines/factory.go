package engines

import (
	"context"
	"fmt"

	"github.com/dgnsrekt/bookvoice/internal/tts"
)

// New builds the engine selected in config. The caller owns the result and
// must Close it.
func New(ctx context.Context, config tts.Config) (tts.Engine, error) {
	switch config.Engine {
	case tts.EngineEdge:
		return NewEdgeEngine(config.Edge, config.TempDir)
	case tts.EngineGTTS:
		return NewGTTSEngine(config.GTTS, config.TempDir)
	case tts.EngineOffline:
		return NewPiperEngine(config.Piper, config.TempDir)
	case tts.EnginePolly:
		return NewPollyEngine(ctx, config.Polly)
	case tts.EngineGoogle:
		return NewGoogleEngine(ctx, config.Google)
	case tts.EngineMock:
		return NewMockEngine(config.TempDir), nil
	case tts.EngineNone:
		return nil, tts.ErrNoEngineConfigured
	default:
		return nil, fmt.Errorf("%w: %s", tts.ErrInvalidEngine, config.Engine)
	}
}
