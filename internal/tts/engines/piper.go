package engines

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/bookvoice/internal/tts"
)

const piperMaxText = 5000

// PiperEngine implements the Engine interface using Piper (offline TTS).
// It uses a fresh process per synthesis with pre-configured stdin to avoid
// race conditions, and writes WAV output to a temp file.
type PiperEngine struct {
	binary     string
	modelPath  string
	configPath string
	speakerID  int
	rate       int
	tempDir    string
	timeout    time.Duration

	mu sync.RWMutex
}

// NewPiperEngine creates a new Piper TTS engine.
func NewPiperEngine(config tts.PiperConfig, tempDir string) (*PiperEngine, error) {
	if config.ModelPath == "" {
		return nil, errors.New("model path is required")
	}
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}
	if config.ConfigPath == "" {
		config.ConfigPath = tts.DefaultPiperConfigPath(config.ModelPath)
	}
	if config.Binary == "" {
		config.Binary = "piper"
	}
	if config.Rate == 0 {
		config.Rate = tts.DefaultRate
	}
	if err := tts.ValidateRate(config.Rate); err != nil {
		return nil, err
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

	return &PiperEngine{
		binary:     config.Binary,
		modelPath:  config.ModelPath,
		configPath: config.ConfigPath,
		speakerID:  config.SpeakerID,
		rate:       config.Rate,
		tempDir:    tempDir,
		timeout:    config.Timeout,
	}, nil
}

// args builds the piper command line for one synthesis.
func (e *PiperEngine) args(out string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	args := []string{
		"--model", e.modelPath,
		"--output_file", out,
		"--length_scale", tts.RateToPiperScale(e.rate),
	}
	if _, err := os.Stat(e.configPath); err == nil {
		args = append(args, "--config", e.configPath)
	}
	if e.speakerID > 0 {
		args = append(args, "--speaker", strconv.Itoa(e.speakerID))
	}
	return args
}

// Synthesize converts text to WAV audio.
func (e *PiperEngine) Synthesize(ctx context.Context, text string) (tts.Audio, error) {
	if err := checkText(tts.EngineOffline, text, piperMaxText); err != nil {
		return tts.Audio{}, err
	}

	out, err := tempPath(e.tempDir, "piper-*.wav")
	if err != nil {
		return tts.Audio{}, err
	}
	defer os.Remove(out)

	cmd := command{
		name: e.binary,
		args: e.args(out),
		// Piper reads one utterance per line.
		stdin:   strings.NewReader(strings.ReplaceAll(text, "\n", " ") + "\n"),
		timeout: e.timeout,
	}
	if _, err := cmd.run(ctx); err != nil {
		return tts.Audio{}, classify(tts.EngineOffline, err)
	}

	data, err := readOutput(out)
	if err != nil {
		return tts.Audio{}, classify(tts.EngineOffline, err)
	}
	return tts.Audio{Data: data, Format: tts.FormatWAV}, nil
}

// Info returns engine capabilities and configuration.
func (e *PiperEngine) Info() tts.EngineInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return tts.EngineInfo{
		Name:        string(tts.EngineOffline),
		Voice:       fmt.Sprintf("%s@%dwpm", modelName(e.modelPath), e.rate),
		Format:      tts.FormatWAV,
		MaxTextSize: piperMaxText,
		IsOnline:    false,
	}
}

func modelName(path string) string {
	name := path[strings.LastIndexAny(path, `/\`)+1:]
	return strings.TrimSuffix(name, ".onnx")
}

// rateVoice tags a cloud voice with its rate when it differs from normal
// speed, keeping cache entries for different rates apart.
func rateVoice(voice string, rate int) string {
	if tts.RateToSpeed(rate) == 1.0 {
		return voice
	}
	return fmt.Sprintf("%s@%dwpm", voice, rate)
}

// Validate checks if the engine is properly configured and available.
func (e *PiperEngine) Validate() error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return tts.NewTTSError(tts.EngineOffline, tts.ErrorCodeEngineUnavailable, "piper not found in PATH", err)
	}
	if _, err := os.Stat(e.modelPath); err != nil {
		return tts.NewTTSError(tts.EngineOffline, tts.ErrorCodeEngineUnavailable, "model file not accessible", err)
	}
	if _, err := os.Stat(e.configPath); err != nil {
		log.Warn("piper model config not found, using model defaults", "path", e.configPath)
	}
	return nil
}

// Close releases resources held by the engine.
func (e *PiperEngine) Close() error { return nil }

var _ tts.Engine = (*PiperEngine)(nil)
