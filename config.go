package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgnsrekt/bookvoice/internal/book"
	"github.com/dgnsrekt/bookvoice/internal/cache"
	"github.com/dgnsrekt/bookvoice/internal/tts"
	"github.com/dgnsrekt/bookvoice/utils"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

// envKeyReplacer maps nested keys to environment names, so piper.model is
// read from BOOKVOICE_PIPER_MODEL.
var envKeyReplacer = strings.NewReplacer(".", "_")

func setConfigDefaults() {
	d := tts.DefaultConfig()

	viper.SetDefault("engine", string(d.Engine))
	viper.SetDefault("chunk_size", book.DefaultChunkSize)
	viper.SetDefault("style", "auto")
	viper.SetDefault("output.dir", "audiobooks")
	viper.SetDefault("voice_match.enabled", false)

	viper.SetDefault("edge.binary", d.Edge.Binary)
	viper.SetDefault("edge.voice", d.Edge.Voice)
	viper.SetDefault("gtts.language", d.GTTS.Language)
	viper.SetDefault("gtts.requests_per_minute", d.GTTS.RequestsPerMinute)
	viper.SetDefault("piper.binary", d.Piper.Binary)
	viper.SetDefault("piper.model", "")
	viper.SetDefault("piper.config", "")
	viper.SetDefault("piper.speaker", 0)
	viper.SetDefault("piper.rate", d.Piper.Rate)
	viper.SetDefault("polly.region", d.Polly.Region)
	viper.SetDefault("polly.voice", d.Polly.Voice)
	viper.SetDefault("polly.engine", d.Polly.Engine)
	viper.SetDefault("polly.rate", d.Polly.Rate)
	viper.SetDefault("google.language_code", d.Google.LanguageCode)
	viper.SetDefault("google.voice_name", d.Google.VoiceName)
	viper.SetDefault("google.credentials_file", "")
	viper.SetDefault("google.rate", d.Google.Rate)

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("cache.memory_mb", 64)
	viper.SetDefault("cache.disk_mb", 1024)
	viper.SetDefault("cache.ttl_days", 7)

	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8080)
}

// engineSelection resolves the engine from --engine or the config file.
func engineSelection() (tts.EngineType, error) {
	engine, err := tts.ValidateEngineSelection(viper.GetString("engine"))
	if err != nil {
		return tts.EngineNone, fmt.Errorf("TTS validation failed: %w", err)
	}
	return engine, nil
}

// validateConfig validates configuration values
func validateConfig() error {
	// Every engine rejects text over book.DefaultChunkSize characters.
	if n := viper.GetInt("chunk_size"); n < 100 || n > book.DefaultChunkSize {
		return fmt.Errorf("chunk_size must be between 100 and %d characters, got %d", book.DefaultChunkSize, n)
	}

	for _, engine := range []string{"piper", "polly", "google"} {
		if err := tts.ValidateRate(viper.GetInt(engine + ".rate")); err != nil {
			return fmt.Errorf("%s rate: %w", engine, err)
		}
	}

	lang := viper.GetString("gtts.language")
	if len(lang) < 2 || len(lang) > 5 {
		return fmt.Errorf("gtts language code must be 2-5 characters, got %q", lang)
	}

	if rpm := viper.GetInt("gtts.requests_per_minute"); rpm < 0 {
		return fmt.Errorf("gtts requests_per_minute must not be negative, got %d", rpm)
	}

	if model := viper.GetString("piper.model"); model != "" {
		model = utils.ExpandPath(model)
		if _, err := os.Stat(model); os.IsNotExist(err) {
			return fmt.Errorf("piper model file does not exist: %s", model)
		}
	}

	if mb := viper.GetInt("cache.memory_mb"); mb < 1 || mb > 10000 {
		return fmt.Errorf("cache memory_mb must be between 1 and 10000 MB, got %d", mb)
	}
	return nil
}

// ttsConfig builds the engine configuration from viper. A --voice flag
// applies to whichever engine is selected.
func ttsConfig() (tts.Config, error) {
	engine, err := engineSelection()
	if err != nil {
		return tts.Config{}, err
	}

	cfg := tts.Config{
		Engine: engine,
		Edge: tts.EdgeConfig{
			Binary:  viper.GetString("edge.binary"),
			Voice:   viper.GetString("edge.voice"),
			Timeout: 2 * time.Minute,
		},
		GTTS: tts.GTTSConfig{
			Language:          viper.GetString("gtts.language"),
			RequestsPerMinute: viper.GetInt("gtts.requests_per_minute"),
		},
		Piper: tts.PiperConfig{
			Binary:     viper.GetString("piper.binary"),
			ModelPath:  utils.ExpandPath(viper.GetString("piper.model")),
			ConfigPath: utils.ExpandPath(viper.GetString("piper.config")),
			SpeakerID:  viper.GetInt("piper.speaker"),
			Rate:       viper.GetInt("piper.rate"),
			Timeout:    2 * time.Minute,
		},
		Polly: tts.PollyConfig{
			Region: viper.GetString("polly.region"),
			Voice:  viper.GetString("polly.voice"),
			Engine: viper.GetString("polly.engine"),
			Rate:   viper.GetInt("polly.rate"),
		},
		Google: tts.GoogleConfig{
			LanguageCode:    viper.GetString("google.language_code"),
			VoiceName:       viper.GetString("google.voice_name"),
			CredentialsFile: utils.ExpandPath(viper.GetString("google.credentials_file")),
			Rate:            viper.GetInt("google.rate"),
		},
	}

	if v := viper.GetString("voice"); v != "" {
		voice, err := tts.ResolveVoice(engine, v)
		if err != nil {
			return tts.Config{}, err
		}
		switch engine {
		case tts.EngineEdge:
			cfg.Edge.Voice = voice
		case tts.EngineGTTS:
			cfg.GTTS.Language = voice
		case tts.EnginePolly:
			cfg.Polly.Voice = voice
		case tts.EngineGoogle:
			cfg.Google.VoiceName = voice
		}
	}
	return cfg, nil
}

func outputDir() string {
	return utils.ExpandPath(viper.GetString("output.dir"))
}

// openCache opens the synthesis cache, or returns nil when it is disabled.
func openCache() (*cache.Manager, error) {
	if !viper.GetBool("cache.enabled") {
		return nil, nil
	}

	dir := utils.ExpandPath(viper.GetString("cache.dir"))
	if dir == "" {
		base, err := gap.NewScope(gap.User, "bookvoice").CacheDir()
		if err != nil {
			return nil, fmt.Errorf("unable to find cache directory: %w", err)
		}
		dir = filepath.Join(base, "audio")
	}

	cfg := cache.DefaultConfig(dir)
	cfg.MemoryCapacity = viper.GetInt64("cache.memory_mb") << 20
	cfg.DiskCapacity = viper.GetInt64("cache.disk_mb") << 20
	cfg.TTL = time.Duration(viper.GetInt("cache.ttl_days")) * 24 * time.Hour
	return cache.NewManager(cfg)
}
