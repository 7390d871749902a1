package tts

import (
	"time"
)

// EngineType represents the TTS engine selection
type EngineType string

const (
	// EngineEdge is Microsoft Edge's online neural voices via edge-tts.
	EngineEdge EngineType = "edge"

	// EngineGTTS is the free Google Translate TTS endpoint.
	EngineGTTS EngineType = "gtts"

	// EngineOffline is the Piper offline engine.
	EngineOffline EngineType = "piper"

	// EnginePolly is Amazon Polly.
	EnginePolly EngineType = "polly"

	// EngineGoogle is Google Cloud Text-to-Speech.
	EngineGoogle EngineType = "google"

	// EngineMock produces synthetic tones, for tests and dry runs.
	EngineMock EngineType = "mock"

	// EngineNone represents no engine selected
	EngineNone EngineType = ""
)

// EngineTypes lists the engines offered to users, in display order.
var EngineTypes = []EngineType{EngineEdge, EngineGTTS, EngineOffline, EnginePolly, EngineGoogle}

// Label is the human readable engine name shown in the UI.
func (e EngineType) Label() string {
	switch e {
	case EngineEdge:
		return "Edge TTS (Microsoft - Good Quality)"
	case EngineGTTS:
		return "gTTS (Google - Fast)"
	case EngineOffline:
		return "Piper (Offline - Fastest)"
	case EnginePolly:
		return "Amazon Polly"
	case EngineGoogle:
		return "Google Cloud TTS"
	case EngineMock:
		return "Mock (test tones)"
	default:
		return "none"
	}
}

// Format is the container of synthesized audio.
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatWAV Format = "wav"
)

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Audio is the result of one synthesis request.
type Audio struct {
	// Data is the encoded audio file content.
	Data []byte

	// Format tells how Data is encoded.
	Format Format
}

// EngineInfo describes engine capabilities and configuration.
type EngineInfo struct {
	Name        string // Engine name (e.g., "piper", "gtts")
	Voice       string // Voice or language in use
	Format      Format // Encoding of synthesized audio
	MaxTextSize int    // Maximum text size in characters
	IsOnline    bool   // Whether the engine requires internet
}

// Config represents TTS configuration
type Config struct {
	// Engine is the selected TTS engine
	Engine EngineType

	// TempDir holds intermediate files. Defaults to the system temp dir.
	TempDir string

	Edge   EdgeConfig
	GTTS   GTTSConfig
	Piper  PiperConfig
	Polly  PollyConfig
	Google GoogleConfig
}

// EdgeConfig contains edge-tts configuration
type EdgeConfig struct {
	// Binary is the edge-tts executable
	Binary string

	// Voice is the neural voice short name
	Voice string

	// Timeout bounds a single synthesis
	Timeout time.Duration
}

// GTTSConfig contains gTTS configuration
type GTTSConfig struct {
	// Language is the language code (e.g., "en", "es", "fr")
	Language string

	// RequestsPerMinute is the rate limit for requests
	RequestsPerMinute int
}

// PiperConfig contains Piper engine configuration
type PiperConfig struct {
	// Binary is the piper executable
	Binary string

	// ModelPath is the path to the Piper model file
	ModelPath string

	// ConfigPath is the path to the model config file
	ConfigPath string

	// SpeakerID is the speaker for multi-speaker models
	SpeakerID int

	// Rate is the speech rate in words per minute
	Rate int

	// Timeout bounds a single synthesis
	Timeout time.Duration
}

// PollyConfig contains Amazon Polly configuration
type PollyConfig struct {
	Region string
	Voice  string
	Engine string // "standard" or "neural"
	Rate   int    // words per minute, sent as SSML prosody
}

// GoogleConfig contains Google Cloud TTS configuration
type GoogleConfig struct {
	LanguageCode    string
	VoiceName       string
	CredentialsFile string
	Rate            int // words per minute
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Engine: EngineGTTS,
		Edge: EdgeConfig{
			Binary:  "edge-tts",
			Voice:   DefaultEdgeVoice,
			Timeout: 2 * time.Minute,
		},
		GTTS: GTTSConfig{
			Language:          "en",
			RequestsPerMinute: 50,
		},
		Piper: PiperConfig{
			Binary:  "piper",
			Rate:    DefaultRate,
			Timeout: 2 * time.Minute,
		},
		Polly: PollyConfig{
			Region: "us-east-1",
			Voice:  "Joanna",
			Engine: "neural",
			Rate:   DefaultRate,
		},
		Google: GoogleConfig{
			LanguageCode: "en-US",
			VoiceName:    "en-US-Standard-C",
			Rate:         DefaultRate,
		},
	}
}
