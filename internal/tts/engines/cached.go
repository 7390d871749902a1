package engines

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/bookvoice/internal/cache"
	"github.com/dgnsrekt/bookvoice/internal/metrics"
	"github.com/dgnsrekt/bookvoice/internal/tts"
)

// CachedEngine decorates an engine with the audio cache and records
// synthesis metrics.
type CachedEngine struct {
	tts.Engine
	cache *cache.Manager
}

// Wrap returns engine with caching. A nil manager only adds metrics.
func Wrap(engine tts.Engine, manager *cache.Manager) *CachedEngine {
	return &CachedEngine{Engine: engine, cache: manager}
}

// Synthesize serves a chunk from the cache or synthesizes and stores it.
func (e *CachedEngine) Synthesize(ctx context.Context, text string) (tts.Audio, error) {
	info := e.Engine.Info()

	var key string
	if e.cache != nil {
		key = cache.Key(info.Name, info.Voice, text)
		if data, ok := e.cache.Get(key); ok {
			metrics.RecordCacheLookup(true)
			return tts.Audio{Data: data, Format: info.Format}, nil
		}
		metrics.RecordCacheLookup(false)
	}

	start := time.Now()
	audio, err := e.Engine.Synthesize(ctx, text)
	metrics.RecordChunk(info.Name, err, time.Since(start))
	if err != nil {
		return tts.Audio{}, err
	}

	if e.cache != nil {
		// Cache errors are non-fatal.
		if err := e.cache.Put(key, audio.Data); err != nil {
			log.Warn("could not cache audio", "engine", info.Name, "err", err)
		}
	}
	return audio, nil
}

var _ tts.Engine = (*CachedEngine)(nil)
