package book

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultBaseName prefixes output files when the PDF name is unknown.
const DefaultBaseName = "audiobook"

// TimestampLayout is the timestamp embedded in saved file names.
const TimestampLayout = "20060102_150405"

var unsafeTitleChars = regexp.MustCompile(`[^\p{L}\p{N}\p{Mn}_\s-]`)

// SafeTitle makes a chapter title usable inside a file name.
func SafeTitle(title string) string {
	title = unsafeTitleChars.ReplaceAllString(title, "")
	return strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
}

// BaseName derives the output prefix from an uploaded PDF file name.
func BaseName(filename string) string {
	name := strings.ReplaceAll(filepath.Base(filename), ".pdf", "")
	if name == "" || name == "." || name == string(filepath.Separator) {
		return DefaultBaseName
	}
	return name
}

// ChapterFileName is the name a generated chapter is saved under.
func ChapterFileName(base, title string, t time.Time) string {
	return fmt.Sprintf("%s_%s_%s.mp3", base, SafeTitle(title), t.Format(TimestampLayout))
}

// CompleteFileName is the name the merged audiobook is saved under.
func CompleteFileName(base string, t time.Time) string {
	return fmt.Sprintf("%s_complete_%s.mp3", base, t.Format(TimestampLayout))
}

// ManifestFileName is the name of the YAML listing written next to the
// generated files.
func ManifestFileName(base string) string {
	return base + "_manifest.yaml"
}
