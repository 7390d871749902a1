package tts

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ValidationResult contains the result of engine validation
type ValidationResult struct {
	// Engine is the validated engine type
	Engine EngineType

	// Available indicates if the engine is available and configured
	Available bool

	// Error contains any validation error
	Error error

	// Guidance provides setup instructions if validation failed
	Guidance string

	// Details contains additional validation information
	Details map[string]string
}

// ValidateEngineSelection normalizes an engine name, including aliases.
// Returns ErrNoEngineConfigured if no engine is selected.
func ValidateEngineSelection(name string) (EngineType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return EngineNone, ErrNoEngineConfigured
	}

	// The UI labels ("gTTS (Google - Fast)") are accepted too; only the
	// first word counts.
	if i := strings.IndexByte(name, ' '); i > 0 {
		name = name[:i]
	}

	switch name {
	case "edge", "edge-tts":
		return EngineEdge, nil
	case "gtts", "google-translate":
		return EngineGTTS, nil
	case "piper", "offline", "pyttsx3":
		return EngineOffline, nil
	case "polly", "aws":
		return EnginePolly, nil
	case "google", "google-cloud", "gcloud":
		return EngineGoogle, nil
	case "mock":
		return EngineMock, nil
	default:
		return EngineNone, fmt.Errorf("%w: %s\n\nSupported engines:\n  - edge (Microsoft Edge neural voices)\n  - gtts (Google Translate TTS)\n  - piper (offline TTS)\n  - polly (Amazon Polly)\n  - google (Google Cloud TTS)", ErrInvalidEngine, name)
	}
}

// ValidateEngine checks that the binaries, model files or credentials an
// engine needs are present. It never performs a test synthesis.
func ValidateEngine(engine EngineType, config Config) *ValidationResult {
	result := &ValidationResult{
		Engine:  engine,
		Details: make(map[string]string),
	}

	switch engine {
	case EngineEdge:
		result.Details["engine"] = EngineEdge.Label()
		if path, ok := lookBinary(result, config.Edge.Binary, "edge-tts", buildEdgeInstallGuidance()); ok {
			result.Details["binary_path"] = path
			result.Details["voice"] = config.Edge.Voice
			result.Available = true
		}
	case EngineGTTS:
		result.Details["engine"] = EngineGTTS.Label()
		result.Details["language"] = config.GTTS.Language
		result.Details["status"] = "Ready (requires internet access)"
		result.Available = true
	case EngineOffline:
		validatePiperEngine(config.Piper, result)
	case EnginePolly:
		result.Details["engine"] = EnginePolly.Label()
		result.Details["region"] = config.Polly.Region
		result.Details["voice"] = config.Polly.Voice
		result.Available = true
		result.Details["status"] = "Ready (uses the default AWS credential chain)"
	case EngineGoogle:
		result.Details["engine"] = EngineGoogle.Label()
		if f := config.Google.CredentialsFile; f != "" {
			if _, err := os.Stat(f); err != nil {
				result.Error = fmt.Errorf("credentials file not accessible: %w", err)
				result.Guidance = "Set google.credentials_file to a service account JSON key"
				return result
			}
			result.Details["credentials"] = f
		} else if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			result.Details["credentials"] = "application default credentials"
		}
		result.Available = true
	case EngineMock:
		result.Details["engine"] = EngineMock.Label()
		result.Available = true
	case EngineNone:
		result.Error = ErrNoEngineConfigured
		result.Guidance = "Please specify a TTS engine with --engine or in the config file"
	default:
		result.Error = fmt.Errorf("%w: %s", ErrInvalidEngine, engine)
		result.Guidance = "Supported engines: edge, gtts, piper, polly, google"
	}

	return result
}

func lookBinary(result *ValidationResult, binary, fallback, guidance string) (string, bool) {
	if binary == "" {
		binary = fallback
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		result.Error = fmt.Errorf("%s not found in PATH: %w", binary, err)
		result.Guidance = guidance
		return "", false
	}
	return path, true
}

// validatePiperEngine validates the Piper TTS engine configuration and availability
func validatePiperEngine(config PiperConfig, result *ValidationResult) {
	result.Details["engine"] = EngineOffline.Label()

	path, ok := lookBinary(result, config.Binary, "piper", buildPiperInstallGuidance())
	if !ok {
		return
	}
	result.Details["binary_path"] = path

	if config.ModelPath == "" {
		result.Error = fmt.Errorf("piper model path not configured")
		result.Guidance = buildPiperModelGuidance()
		return
	}
	if _, err := os.Stat(config.ModelPath); err != nil {
		result.Error = fmt.Errorf("model file not accessible: %w", err)
		result.Guidance = buildPiperModelGuidance()
		return
	}
	result.Details["model_path"] = config.ModelPath

	configPath := config.ConfigPath
	if configPath == "" {
		configPath = DefaultPiperConfigPath(config.ModelPath)
	}
	if _, err := os.Stat(configPath); err == nil {
		result.Details["config_path"] = configPath
	} else {
		result.Details["config_note"] = "Config file not found (using model defaults)"
	}

	result.Details["rate"] = fmt.Sprintf("%d wpm", config.Rate)
	result.Available = true
}

// DefaultPiperConfigPath is where Piper looks for a model's JSON config.
func DefaultPiperConfigPath(modelPath string) string {
	if strings.HasSuffix(modelPath, ".onnx") {
		return modelPath + ".json"
	}
	return strings.TrimSuffix(modelPath, filepath.Ext(modelPath)) + ".json"
}

// FFmpegAvailable reports whether ffmpeg, which every audio operation
// depends on, can be found.
func FFmpegAvailable() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: %w\n\n%s", err, buildFFmpegInstallGuidance())
	}
	return nil
}

func buildEdgeInstallGuidance() string {
	return `edge-tts is not installed. To install:

   pip install edge-tts
   # or
   pipx install edge-tts

Verify with:
   edge-tts --list-voices`
}

// buildPiperInstallGuidance provides instructions for installing Piper
func buildPiperInstallGuidance() string {
	return `Piper TTS is not installed. To install:

1. Download Piper from: https://github.com/rhasspy/piper/releases
   or: pip install piper-tts
2. Download a voice model from: https://github.com/rhasspy/piper/blob/master/VOICES.md
3. Configure the model path in bookvoice.yml (piper.model)`
}

// buildPiperModelGuidance provides instructions for configuring Piper models
func buildPiperModelGuidance() string {
	return `Piper model path not configured. To configure:

1. Download a voice model, for example:
   mkdir -p ~/.local/share/piper/models
   cd ~/.local/share/piper/models
   wget https://huggingface.co/rhasspy/piper-voices/resolve/v1.0.0/en/en_US/amy/medium/en_US-amy-medium.onnx
   wget https://huggingface.co/rhasspy/piper-voices/resolve/v1.0.0/en/en_US/amy/medium/en_US-amy-medium.onnx.json

2. Set it in bookvoice.yml:
   piper:
     model: ~/.local/share/piper/models/en_US-amy-medium.onnx`
}

// buildFFmpegInstallGuidance provides instructions for installing ffmpeg
func buildFFmpegInstallGuidance() string {
	return `ffmpeg is required for audio conversion. To install:

# Ubuntu/Debian
sudo apt update && sudo apt install ffmpeg

# Fedora
sudo dnf install ffmpeg

# macOS (Homebrew)
brew install ffmpeg`
}
