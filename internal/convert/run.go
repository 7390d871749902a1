package convert

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/bookvoice/internal/book"
)

// ErrNoAudio is returned by Run when no chapter produced audio.
var ErrNoAudio = errors.New("no audio was generated for the selected chapters")

// Result is the outcome of a full run.
type Result struct {
	Files []AudioFile

	// Complete is the saved merged audiobook; empty for a single chapter
	// or when merging failed.
	Complete string

	// Manifest is the path of the written manifest, if any.
	Manifest string
}

// Run converts chapters, merges them when more than one file was produced
// and writes the manifest. Merge and manifest failures are logged; the
// chapter files remain usable.
func (c *Converter) Run(ctx context.Context, chapters []book.Chapter, progress Progress) (Result, error) {
	if progress == nil {
		progress = func(float64, string) {}
	}

	files, err := c.ProcessChapters(ctx, chapters, progress)
	if err != nil {
		return Result{Files: files}, err
	}
	if len(files) == 0 {
		return Result{}, ErrNoAudio
	}

	result := Result{Files: files}
	if len(files) > 1 {
		progress(1, "Merging chapters...")
		complete, err := c.MergeAll(files, c.MergePath())
		if err != nil {
			log.Warn("merge failed, chapter files are still available", "err", err)
		} else {
			result.Complete = complete
		}
	}

	manifest, err := c.WriteManifest(files, result.Complete)
	if err != nil {
		log.Warn("unable to write manifest", "err", err)
	} else {
		result.Manifest = manifest
	}
	return result, nil
}
