package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/dgnsrekt/bookvoice/internal/book"
	"github.com/mattn/go-runewidth"
)

const previewWidth = 40

// ChapterTable lists chapters as a markdown table: number, title,
// character count and the opening words.
func ChapterTable(chapters []book.Chapter) string {
	var b strings.Builder
	b.WriteString("| # | Chapter | Characters | Opening |\n")
	b.WriteString("|--:|---------|-----------:|---------|\n")
	for _, c := range chapters {
		preview := runewidth.Truncate(book.CleanText(c.Content), previewWidth, "…")
		fmt.Fprintf(&b, "| %d | %s | %d | %s |\n", c.Index+1, c.Title, c.Chars(), preview)
	}
	return b.String()
}

// GlamourStyle picks the renderer style: "auto" detects the terminal
// background, anything else is a built-in style name or a JSON path.
func GlamourStyle(style string) glamour.TermRendererOption {
	if style == "" || style == styles.AutoStyle {
		return glamour.WithAutoStyle()
	}
	return glamour.WithStylePath(style)
}

// RenderChapters renders the chapter table for the terminal.
func RenderChapters(chapters []book.Chapter, style string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		GlamourStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("error creating glamour renderer: %w", err)
	}
	out, err := r.Render(ChapterTable(chapters))
	if err != nil {
		return "", fmt.Errorf("error rendering chapters: %w", err)
	}
	return out, nil
}
