package book

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FullBookTitle is the title of the single chapter returned when no chapter
// could be detected.
const FullBookTitle = "Full Book"

// chapterHeading marks a page that starts a new chapter.
var chapterHeading = regexp.MustCompile(`(?i)chapter[\s\p{Z}]+\p{Nd}+`)

// Chapter is a contiguous run of pages.
type Chapter struct {
	// Index is the zero based position of the chapter in the book.
	Index int

	// Title is synthesized ("Chapter 3"); it is not read from the page.
	Title string

	// Content is the raw page text, one trailing newline per page.
	Content string
}

// Chars returns the number of characters in the chapter content.
func (c Chapter) Chars() int {
	return utf8.RuneCountInString(c.Content)
}

// SplitChapters groups pages into chapters.
//
// A page whose text contains a "Chapter N" heading closes the chapter being
// built, but only if that chapter already holds text. The heading page
// itself opens the next chapter. When nothing could be collected the whole
// text is returned as a single "Full Book" chapter.
func SplitChapters(pages []string) []Chapter {
	var (
		chapters []Chapter
		content  strings.Builder
		num      = 1
	)

	flush := func() {
		chapters = append(chapters, Chapter{
			Index:   len(chapters),
			Title:   chapterTitle(num),
			Content: content.String(),
		})
	}

	for _, page := range pages {
		if chapterHeading.MatchString(page) && strings.TrimSpace(content.String()) != "" {
			flush()
			num++
			content.Reset()
		}
		content.WriteString(page)
		content.WriteByte('\n')
	}

	if strings.TrimSpace(content.String()) != "" {
		flush()
	}

	if len(chapters) == 0 {
		return []Chapter{{Index: 0, Title: FullBookTitle, Content: content.String()}}
	}
	return chapters
}

func chapterTitle(n int) string {
	return fmt.Sprintf("Chapter %d", n)
}

// Select returns the chapters at the given indices, in the order of the
// indices. Out of range indices are ignored.
func Select(chapters []Chapter, indices []int) []Chapter {
	out := make([]Chapter, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(chapters) {
			out = append(out, chapters[i])
		}
	}
	return out
}
