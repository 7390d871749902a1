package convert

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/bookvoice/internal/audio"
	"github.com/dgnsrekt/bookvoice/internal/book"
)

// ChapterGap is the silence between chapters in the merged audiobook.
const ChapterGap = time.Second

// ErrNothingToMerge is returned when no chapter file could be loaded.
var ErrNothingToMerge = errors.New("no audio files to merge")

// MergeAll joins chapter files in order with ChapterGap of silence between
// them, writes the result to dst and saves a copy in the output directory.
// Files that fail to load are skipped.
func (c *Converter) MergeAll(files []AudioFile, dst string) (string, error) {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}

	merged, err := audio.JoinWithGap(paths, ChapterGap)
	if errors.Is(err, audio.ErrNoSegments) {
		return "", ErrNothingToMerge
	}
	if err != nil {
		return "", err
	}
	if err := audio.Export(merged, dst); err != nil {
		return "", err
	}

	saved := filepath.Join(c.opts.OutputDir, book.CompleteFileName(c.opts.BaseName, c.opts.Clock()))
	if err := audio.CopyFile(dst, saved); err != nil {
		return "", err
	}
	log.Info("audiobook saved", "chapters", len(files), "path", saved)
	return saved, nil
}

// MergePath is the working path for the merged audiobook.
func (c *Converter) MergePath() string {
	return filepath.Join(c.workDir, "complete.mp3")
}
