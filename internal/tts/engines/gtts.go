package engines

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/bookvoice/internal/book"
	"github.com/dgnsrekt/bookvoice/internal/tts"
	htgotts "github.com/hegedustibor/htgo-tts"
	"github.com/jdkato/prose/v2"
	"golang.org/x/time/rate"
)

const (
	// gttsMaxText matches the chunk size the rest of the pipeline uses.
	gttsMaxText = 5000

	// gttsPieceSize is the most the translate endpoint accepts per request.
	gttsPieceSize = 100

	// gttsBadResponseSize is the size of the MP3 the endpoint returns when
	// it rejects a request.
	gttsBadResponseSize = 1685
)

// GTTSEngine implements the Engine interface using the Google Translate
// speech endpoint. It needs no API key. A chunk is split on sentence
// boundaries into pieces the endpoint accepts and the resulting MP3
// streams are joined frame-wise.
type GTTSEngine struct {
	language string
	tempDir  string

	// Rate limiting to avoid being blocked by Google
	rateLimiter *rate.Limiter

	mu sync.RWMutex
}

// NewGTTSEngine creates a new gTTS engine.
func NewGTTSEngine(config tts.GTTSConfig, tempDir string) (*GTTSEngine, error) {
	if config.Language == "" {
		config.Language = "en"
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 50
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &GTTSEngine{
		language:    config.Language,
		tempDir:     tempDir,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1),
	}, nil
}

// Synthesize converts text to MP3 audio.
func (e *GTTSEngine) Synthesize(ctx context.Context, text string) (tts.Audio, error) {
	if err := checkText(tts.EngineGTTS, text, gttsMaxText); err != nil {
		return tts.Audio{}, err
	}

	// Each call gets its own folder: htgo-tts skips the download when the
	// target file already exists.
	dir, err := os.MkdirTemp(e.tempDir, "gtts-*")
	if err != nil {
		return tts.Audio{}, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(dir)

	speech := htgotts.Speech{Folder: dir, Language: e.Language()}

	var out bytes.Buffer
	pieces := splitPieces(text, gttsPieceSize)
	for i, piece := range pieces {
		if err := e.rateLimiter.Wait(ctx); err != nil {
			return tts.Audio{}, classify(tts.EngineGTTS, err)
		}

		path, err := speech.CreateSpeechFile(piece, fmt.Sprintf("piece-%04d", i))
		if err != nil {
			return tts.Audio{}, classify(tts.EngineGTTS, err)
		}
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return tts.Audio{}, classify(tts.EngineGTTS, err)
		}
		if len(data) == 0 || len(data) == gttsBadResponseSize {
			return tts.Audio{}, tts.NewTTSError(tts.EngineGTTS, tts.ErrorCodeRateLimited,
				"endpoint rejected the request", tts.ErrSynthesisFailed)
		}
		out.Write(data)
	}

	log.Debug("gtts synthesized", "pieces", len(pieces), "bytes", out.Len())
	return tts.Audio{Data: out.Bytes(), Format: tts.FormatMP3}, nil
}

// splitPieces breaks text into sentences and packs them into pieces of at
// most size characters. Sentences that are still too long are split on
// word boundaries.
func splitPieces(text string, size int) []string {
	var sentences []string
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithTokenization(false))
	if err == nil {
		for _, s := range doc.Sentences() {
			if t := strings.TrimSpace(s.Text); t != "" {
				sentences = append(sentences, t)
			}
		}
	}
	if len(sentences) == 0 {
		sentences = []string{text}
	}

	var pieces []string
	for _, s := range sentences {
		pieces = append(pieces, book.SplitText(s, size)...)
	}

	// Pack short neighbours back together.
	var packed []string
	for _, p := range pieces {
		n := len(packed)
		if n > 0 && len([]rune(packed[n-1]))+1+len([]rune(p)) <= size {
			packed[n-1] += " " + p
			continue
		}
		packed = append(packed, p)
	}
	return packed
}

// Info returns engine capabilities and configuration.
func (e *GTTSEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        string(tts.EngineGTTS),
		Voice:       e.Language(),
		Format:      tts.FormatMP3,
		MaxTextSize: gttsMaxText,
		IsOnline:    true,
	}
}

// Validate checks the configured language. Reachability of the endpoint
// is only known at synthesis time.
func (e *GTTSEngine) Validate() error {
	if e.Language() == "" {
		return tts.NewTTSError(tts.EngineGTTS, tts.ErrorCodeInvalidInput, "no language configured", nil)
	}
	return nil
}

// Close releases resources held by the engine.
func (e *GTTSEngine) Close() error { return nil }

// Language returns the current language.
func (e *GTTSEngine) Language() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.language
}

var _ tts.Engine = (*GTTSEngine)(nil)
