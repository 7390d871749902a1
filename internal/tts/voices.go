package tts

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// DefaultEdgeVoice is the Edge voice used when none is configured.
const DefaultEdgeVoice = "en-US-AriaNeural"

// voices lists the choices offered per engine. For gTTS and Google Cloud
// these are language codes, for the others voice names.
var voices = map[EngineType][]string{
	EngineEdge:    {"en-US-AriaNeural", "en-US-JennyNeural", "en-US-GuyNeural"},
	EngineGTTS:    {"en", "es", "fr", "de"},
	EnginePolly:   {"Joanna", "Matthew", "Amy", "Brian", "Lupe", "Lea", "Vicki"},
	EngineGoogle:  {"en-US-Standard-C", "en-US-Standard-D", "en-GB-Standard-A", "es-ES-Standard-A", "fr-FR-Standard-A", "de-DE-Standard-A"},
	EngineOffline: nil,
	EngineMock:    {"tone"},
}

// VoicesFor returns the voice (or language) choices for an engine. The
// offline engine picks its voice through the model file and returns nil.
func VoicesFor(engine EngineType) []string {
	return append([]string(nil), voices[engine]...)
}

// ResolveVoice maps a user supplied voice to one of the engine's choices.
// Exact matches win, then case-insensitive ones, then the best fuzzy match
// ("aria" resolves to "en-US-AriaNeural"). Engines without a voice list
// accept the query unchanged.
func ResolveVoice(engine EngineType, query string) (string, error) {
	choices := voices[engine]
	if len(choices) == 0 || query == "" {
		return query, nil
	}

	for _, c := range choices {
		if c == query {
			return c, nil
		}
	}
	for _, c := range choices {
		if strings.EqualFold(c, query) {
			return c, nil
		}
	}

	matches := fuzzy.Find(strings.ToLower(query), lower(choices))
	if len(matches) == 0 {
		return "", fmt.Errorf("unknown voice %q for %s, choose one of: %s",
			query, engine, strings.Join(choices, ", "))
	}
	return choices[matches[0].Index], nil
}

func lower(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
