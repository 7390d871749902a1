package book

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultChunkSize is the largest chunk, in characters, handed to a TTS
// engine in one request.
const DefaultChunkSize = 5000

var (
	whitespaceRun = regexp.MustCompile(`[\s\v\p{Z}\x{85}]+`)

	// Anything that is not a word character, whitespace or light
	// punctuation is unspeakable noise (bullets, symbols, stray glyphs).
	unspeakable = regexp.MustCompile(`[^\p{L}\p{N}\p{Mn}_\s\v\p{Z}.,!?'-]`)
)

// CleanText prepares chapter text for synthesis. Whitespace runs collapse to
// a single space, then every character outside letters, digits, underscore,
// whitespace and . , ! ? - ' is dropped.
func CleanText(text string) string {
	text = norm.NFC.String(text)
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = unspeakable.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// SplitText packs the words of text into chunks of at most maxChars
// characters. Each word is counted with one separating space. A word that
// is longer than maxChars on its own becomes a chunk of its own.
func SplitText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultChunkSize
	}
	if utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}

	var (
		chunks  []string
		current []string
		length  int
	)

	for _, word := range strings.Fields(text) {
		wordLen := utf8.RuneCountInString(word) + 1
		if length+wordLen > maxChars && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = []string{word}
			length = wordLen
			continue
		}
		current = append(current, word)
		length += wordLen
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}
