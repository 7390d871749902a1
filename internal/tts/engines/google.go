package engines

import (
	"bytes"
	"context"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/dgnsrekt/bookvoice/internal/book"
	"github.com/dgnsrekt/bookvoice/internal/tts"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

const (
	googleMaxText = 5000

	// The API limit is 5000 bytes of input; this keeps multi-byte text
	// under it.
	googleRequestSize = 1200
)

// googleAPI is the subset of the Cloud TTS client the engine uses.
type googleAPI interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// GoogleEngine synthesizes speech with Google Cloud Text-to-Speech.
type GoogleEngine struct {
	client       googleAPI
	languageCode string
	voiceName    string
	rate         int
}

// NewGoogleEngine creates a Cloud TTS client. Without a credentials file
// the application default credentials are used.
func NewGoogleEngine(ctx context.Context, cfg tts.GoogleConfig) (*GoogleEngine, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, tts.NewTTSError(tts.EngineGoogle, tts.ErrorCodeEngineUnavailable, "could not create client", err)
	}
	return newGoogleEngine(client, cfg), nil
}

func newGoogleEngine(client googleAPI, cfg tts.GoogleConfig) *GoogleEngine {
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}
	return &GoogleEngine{client: client, languageCode: cfg.LanguageCode, voiceName: cfg.VoiceName, rate: cfg.Rate}
}

// Synthesize converts text to MP3 audio.
func (e *GoogleEngine) Synthesize(ctx context.Context, text string) (tts.Audio, error) {
	if err := checkText(tts.EngineGoogle, text, googleMaxText); err != nil {
		return tts.Audio{}, err
	}

	var out bytes.Buffer
	for _, part := range book.SplitText(text, googleRequestSize) {
		resp, err := e.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{Text: part},
			},
			Voice: &texttospeechpb.VoiceSelectionParams{
				LanguageCode: e.languageCode,
				Name:         e.voiceName,
			},
			AudioConfig: &texttospeechpb.AudioConfig{
				AudioEncoding: texttospeechpb.AudioEncoding_MP3,
				SpeakingRate:  tts.RateToSpeed(e.rate),
			},
		})
		if err != nil {
			return tts.Audio{}, classify(tts.EngineGoogle, err)
		}
		out.Write(resp.GetAudioContent())
	}
	return tts.Audio{Data: out.Bytes(), Format: tts.FormatMP3}, nil
}

// Info returns engine capabilities and configuration.
func (e *GoogleEngine) Info() tts.EngineInfo {
	voice := e.voiceName
	if voice == "" {
		voice = e.languageCode
	}
	return tts.EngineInfo{
		Name:        string(tts.EngineGoogle),
		Voice:       rateVoice(voice, e.rate),
		Format:      tts.FormatMP3,
		MaxTextSize: googleMaxText,
		IsOnline:    true,
	}
}

// Validate checks the configured language.
func (e *GoogleEngine) Validate() error {
	if e.languageCode == "" {
		return tts.NewTTSError(tts.EngineGoogle, tts.ErrorCodeInvalidInput, "no language configured", nil)
	}
	return nil
}

// Close releases the gRPC connection.
func (e *GoogleEngine) Close() error {
	return e.client.Close()
}

var _ tts.Engine = (*GoogleEngine)(nil)
