package book

import (
	"strings"
	"testing"
)

func TestSplitChapters(t *testing.T) {
	tests := []struct {
		name   string
		pages  []string
		titles []string
		first  string
	}{
		{
			name:   "no headings gives one chapter",
			pages:  []string{"Once upon a time", "the end"},
			titles: []string{"Chapter 1"},
			first:  "Once upon a time\nthe end\n",
		},
		{
			name:   "heading on first page does not split",
			pages:  []string{"Chapter 1 The Start", "more text", "CHAPTER 2 Next", "body"},
			titles: []string{"Chapter 1", "Chapter 2"},
			first:  "Chapter 1 The Start\nmore text\n",
		},
		{
			name:   "case insensitive heading",
			pages:  []string{"Preface", "chapter   7", "text"},
			titles: []string{"Chapter 1", "Chapter 2"},
			first:  "Preface\n",
		},
		{
			name:   "no-break space in heading",
			pages:  []string{"Preface", "Chapter\u00a03", "text"},
			titles: []string{"Chapter 1", "Chapter 2"},
			first:  "Preface\n",
		},
		{
			name:   "titles are synthesized not copied",
			pages:  []string{"intro", "Chapter 12", "Chapter 40"},
			titles: []string{"Chapter 1", "Chapter 2", "Chapter 3"},
			first:  "intro\n",
		},
		{
			name:   "blank pages before heading do not close a chapter",
			pages:  []string{"   ", "Chapter 1", "text"},
			titles: []string{"Chapter 1"},
			first:  "   \nChapter 1\ntext\n",
		},
		{
			name:   "empty book falls back to full book",
			pages:  []string{"", "  "},
			titles: []string{FullBookTitle},
			first:  "\n  \n",
		},
		{
			name:   "no pages at all",
			pages:  nil,
			titles: []string{FullBookTitle},
			first:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chapters := SplitChapters(tt.pages)

			if len(chapters) != len(tt.titles) {
				t.Fatalf("got %d chapters, want %d", len(chapters), len(tt.titles))
			}
			for i, ch := range chapters {
				if ch.Title != tt.titles[i] {
					t.Errorf("chapter %d title = %q, want %q", i, ch.Title, tt.titles[i])
				}
				if ch.Index != i {
					t.Errorf("chapter %d index = %d", i, ch.Index)
				}
			}
			if chapters[0].Content != tt.first {
				t.Errorf("first content = %q, want %q", chapters[0].Content, tt.first)
			}
		})
	}
}

func TestSplitChapters_HeadingPageOpensNextChapter(t *testing.T) {
	chapters := SplitChapters([]string{"prologue", "Chapter 1 begins here", "and continues"})
	if len(chapters) != 2 {
		t.Fatalf("got %d chapters, want 2", len(chapters))
	}
	if !strings.HasPrefix(chapters[1].Content, "Chapter 1 begins here\n") {
		t.Errorf("heading page should start chapter 2, got %q", chapters[1].Content)
	}
}

func TestChapterChars(t *testing.T) {
	ch := Chapter{Content: "héllo"}
	if ch.Chars() != 5 {
		t.Errorf("Chars() = %d, want 5", ch.Chars())
	}
}

func TestSelect(t *testing.T) {
	chapters := SplitChapters([]string{"a", "Chapter 2", "Chapter 3"})
	got := Select(chapters, []int{2, 0, 9, -1})
	if len(got) != 2 {
		t.Fatalf("got %d chapters, want 2", len(got))
	}
	if got[0].Index != 2 || got[1].Index != 0 {
		t.Errorf("unexpected order: %d, %d", got[0].Index, got[1].Index)
	}
}
