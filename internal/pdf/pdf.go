// Package pdf extracts page text from PDF documents using MuPDF.
package pdf

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/go-fitz"
)

// ErrOpen is returned when a document cannot be parsed as a PDF.
var ErrOpen = errors.New("unable to open PDF")

// Document is the extracted text of a PDF.
type Document struct {
	// Title from the document metadata, if any.
	Title string

	// Pages holds the text of every page, in order. Pages whose text
	// could not be extracted are empty.
	Pages []string
}

// Extract reads a PDF from r and returns its page texts.
func Extract(r io.Reader) (*Document, error) {
	doc, err := fitz.NewFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	defer doc.Close() //nolint:errcheck

	return extract(doc), nil
}

// ExtractFile reads the PDF at path and returns its page texts.
func ExtractFile(path string) (*Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	defer doc.Close() //nolint:errcheck

	return extract(doc), nil
}

func extract(doc *fitz.Document) *Document {
	n := doc.NumPage()
	out := &Document{Pages: make([]string, n)}

	if meta := doc.Metadata(); meta != nil {
		out.Title = strings.TrimSpace(meta["title"])
	}

	for i := 0; i < n; i++ {
		text, err := doc.Text(i)
		if err != nil {
			log.Warn("Could not extract page text", "page", i+1, "error", err)
			continue
		}
		out.Pages[i] = text
	}

	log.Debug("Extracted PDF", "pages", n, "title", out.Title)
	return out
}
