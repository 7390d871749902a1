package engines

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/dgnsrekt/bookvoice/internal/tts"
)

// edgeMaxText is the longest chunk sent to edge-tts in one call.
const edgeMaxText = 5000

// EdgeEngine synthesizes speech with Microsoft Edge's online neural voices
// through the edge-tts command line tool. The text is handed over in a
// temp file so long chunks never hit argument length limits.
type EdgeEngine struct {
	binary  string
	voice   string
	tempDir string
	timeout time.Duration

	mu sync.RWMutex
}

// NewEdgeEngine creates a new edge-tts engine.
func NewEdgeEngine(config tts.EdgeConfig, tempDir string) (*EdgeEngine, error) {
	if config.Binary == "" {
		config.Binary = "edge-tts"
	}
	if config.Voice == "" {
		config.Voice = tts.DefaultEdgeVoice
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &EdgeEngine{
		binary:  config.Binary,
		voice:   config.Voice,
		tempDir: tempDir,
		timeout: config.Timeout,
	}, nil
}

// Synthesize converts text to MP3 audio.
func (e *EdgeEngine) Synthesize(ctx context.Context, text string) (tts.Audio, error) {
	if err := checkText(tts.EngineEdge, text, edgeMaxText); err != nil {
		return tts.Audio{}, err
	}

	textFile, err := tempPath(e.tempDir, "edge-*.txt")
	if err != nil {
		return tts.Audio{}, err
	}
	defer os.Remove(textFile)
	if err := os.WriteFile(textFile, []byte(text), 0o600); err != nil {
		return tts.Audio{}, fmt.Errorf("failed to write text file: %w", err)
	}

	out, err := tempPath(e.tempDir, "edge-*.mp3")
	if err != nil {
		return tts.Audio{}, err
	}
	defer os.Remove(out)

	cmd := command{
		name: e.binary,
		args: []string{
			"--file", textFile,
			"--voice", e.Voice(),
			"--write-media", out,
		},
		timeout: e.timeout,
	}
	if _, err := cmd.run(ctx); err != nil {
		return tts.Audio{}, classify(tts.EngineEdge, err)
	}

	data, err := readOutput(out)
	if err != nil {
		return tts.Audio{}, classify(tts.EngineEdge, err)
	}
	return tts.Audio{Data: data, Format: tts.FormatMP3}, nil
}

// Info returns engine capabilities and configuration.
func (e *EdgeEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        string(tts.EngineEdge),
		Voice:       e.Voice(),
		Format:      tts.FormatMP3,
		MaxTextSize: edgeMaxText,
		IsOnline:    true,
	}
}

// Validate checks that the edge-tts binary can be found.
func (e *EdgeEngine) Validate() error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return tts.NewTTSError(tts.EngineEdge, tts.ErrorCodeEngineUnavailable,
			"edge-tts not found in PATH, install with: pip install edge-tts", err)
	}
	return nil
}

// Close releases resources held by the engine.
func (e *EdgeEngine) Close() error { return nil }

// Voice returns the current neural voice.
func (e *EdgeEngine) Voice() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.voice
}

var _ tts.Engine = (*EdgeEngine)(nil)
