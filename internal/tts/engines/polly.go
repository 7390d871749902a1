package engines

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"math"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/dgnsrekt/bookvoice/internal/book"
	"github.com/dgnsrekt/bookvoice/internal/tts"
)

const (
	pollyMaxText = 5000

	// pollyRequestSize is Polly's limit on billed characters per request.
	pollyRequestSize = 3000
)

// pollyAPI is the subset of the Polly client the engine uses.
type pollyAPI interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// PollyEngine synthesizes speech with Amazon Polly. Credentials come from
// the default AWS chain.
type PollyEngine struct {
	client pollyAPI
	voice  string
	engine string
	rate   int
}

// NewPollyEngine creates a Polly engine for the configured region.
func NewPollyEngine(ctx context.Context, cfg tts.PollyConfig) (*PollyEngine, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, tts.NewTTSError(tts.EnginePolly, tts.ErrorCodeEngineUnavailable, "could not load AWS credentials", err)
	}
	return newPollyEngine(polly.NewFromConfig(awsCfg), cfg), nil
}

func newPollyEngine(client pollyAPI, cfg tts.PollyConfig) *PollyEngine {
	if cfg.Voice == "" {
		cfg.Voice = "Joanna"
	}
	if cfg.Engine == "" {
		cfg.Engine = string(types.EngineNeural)
	}
	return &PollyEngine{client: client, voice: cfg.Voice, engine: cfg.Engine, rate: cfg.Rate}
}

// input builds the request for one part. Polly has no speed parameter, so
// a non-default rate is sent as SSML prosody.
func (e *PollyEngine) input(part string) *polly.SynthesizeSpeechInput {
	in := &polly.SynthesizeSpeechInput{
		Text:         aws.String(part),
		VoiceId:      types.VoiceId(e.voice),
		Engine:       types.Engine(e.engine),
		OutputFormat: types.OutputFormatMp3,
	}
	if speed := tts.RateToSpeed(e.rate); speed != 1.0 {
		pct := int(math.Round(speed * 100))
		in.Text = aws.String(fmt.Sprintf(`<speak><prosody rate="%d%%">%s</prosody></speak>`, pct, html.EscapeString(part)))
		in.TextType = types.TextTypeSsml
	}
	return in
}

// Synthesize converts text to MP3 audio.
func (e *PollyEngine) Synthesize(ctx context.Context, text string) (tts.Audio, error) {
	if err := checkText(tts.EnginePolly, text, pollyMaxText); err != nil {
		return tts.Audio{}, err
	}

	var out bytes.Buffer
	for _, part := range book.SplitText(text, pollyRequestSize) {
		resp, err := e.client.SynthesizeSpeech(ctx, e.input(part))
		if err != nil {
			return tts.Audio{}, classify(tts.EnginePolly, err)
		}
		_, err = io.Copy(&out, resp.AudioStream)
		resp.AudioStream.Close()
		if err != nil {
			return tts.Audio{}, classify(tts.EnginePolly, fmt.Errorf("reading audio stream: %w", err))
		}
	}
	return tts.Audio{Data: out.Bytes(), Format: tts.FormatMP3}, nil
}

// Info returns engine capabilities and configuration.
func (e *PollyEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        string(tts.EnginePolly),
		Voice:       rateVoice(e.voice, e.rate),
		Format:      tts.FormatMP3,
		MaxTextSize: pollyMaxText,
		IsOnline:    true,
	}
}

// Validate checks the configured voice.
func (e *PollyEngine) Validate() error {
	if e.voice == "" {
		return tts.NewTTSError(tts.EnginePolly, tts.ErrorCodeInvalidInput, "no voice configured", nil)
	}
	return nil
}

// Close releases resources held by the engine.
func (e *PollyEngine) Close() error { return nil }

var _ tts.Engine = (*PollyEngine)(nil)
