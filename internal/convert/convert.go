// Package convert turns chapters into saved MP3 files: clean, chunk,
// synthesize sequentially, join, level and copy to the output directory.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/bookvoice/internal/audio"
	"github.com/dgnsrekt/bookvoice/internal/book"
	"github.com/dgnsrekt/bookvoice/internal/metrics"
	"github.com/dgnsrekt/bookvoice/internal/tts"
)

// Options configures a conversion.
type Options struct {
	// Engine synthesizes every chunk. Required.
	Engine tts.Engine

	// ChunkSize is the largest chunk in characters; 0 means
	// book.DefaultChunkSize. It is capped at the engine's MaxTextSize.
	ChunkSize int

	// OutputDir receives the saved chapter and merged files.
	OutputDir string

	// BaseName prefixes saved files, usually book.BaseName of the PDF.
	BaseName string

	// VoiceSample, when set, is the reference for loudness matching.
	VoiceSample string

	// TempDir holds intermediate audio; defaults to the system temp dir.
	TempDir string

	// Clock stamps saved file names; defaults to time.Now.
	Clock func() time.Time
}

// AudioFile is one generated chapter.
type AudioFile struct {
	Title string

	// Path is the working copy, valid until the Converter is closed.
	Path string

	// SavedPath is the copy in the output directory.
	SavedPath string
}

// Progress receives the fraction of chapters started and a status line.
type Progress func(fraction float64, message string)

// Converter runs conversions with one set of options. It is not safe for
// concurrent use: synthesis is strictly sequential.
type Converter struct {
	opts    Options
	workDir string
	matcher audio.VoiceMatcher
}

// New validates opts and creates the working directory.
func New(opts Options) (*Converter, error) {
	if opts.Engine == nil {
		return nil, tts.ErrNoEngineConfigured
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = book.DefaultChunkSize
	}
	if limit := opts.Engine.Info().MaxTextSize; limit > 0 && opts.ChunkSize > limit {
		log.Warn("chunk size exceeds engine limit", "chunk_size", opts.ChunkSize, "limit", limit)
		opts.ChunkSize = limit
	}
	if opts.BaseName == "" {
		opts.BaseName = book.DefaultBaseName
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	workDir, err := os.MkdirTemp(opts.TempDir, "bookvoice-*")
	if err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}
	return &Converter{opts: opts, workDir: workDir}, nil
}

// Options returns the effective options.
func (c *Converter) Options() Options { return c.opts }

// Close removes the working copies.
func (c *Converter) Close() error {
	return os.RemoveAll(c.workDir)
}

// ProcessChapters converts chapters in order. Chapters without speakable
// text, or whose chunks all failed, produce no file. On cancellation the
// files finished so far are returned with ctx.Err().
func (c *Converter) ProcessChapters(ctx context.Context, chapters []book.Chapter, progress Progress) ([]AudioFile, error) {
	if progress == nil {
		progress = func(float64, string) {}
	}

	matching := false
	if c.opts.VoiceSample != "" {
		if err := c.matcher.Analyze(c.opts.VoiceSample); err != nil {
			log.Warn("voice matching disabled", "err", err)
		} else {
			matching = true
		}
	}

	var files []AudioFile
	total := len(chapters)
	for idx, chapter := range chapters {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		progress(float64(idx+1)/float64(total), fmt.Sprintf("Processing %s...", chapter.Title))

		path, err := c.processChapter(ctx, idx, chapter)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return files, ctxErr
			}
			log.Warn("chapter skipped", "title", chapter.Title, "err", err)
			metrics.RecordChapter(false)
			continue
		}

		if matching {
			path = c.matchLoudness(path, chapter.Title)
		}

		saved := filepath.Join(c.opts.OutputDir, book.ChapterFileName(c.opts.BaseName, chapter.Title, c.opts.Clock()))
		if err := audio.CopyFile(path, saved); err != nil {
			return files, fmt.Errorf("saving %s: %w", chapter.Title, err)
		}

		log.Info("chapter saved", "title", chapter.Title, "path", saved)
		metrics.RecordChapter(true)
		files = append(files, AudioFile{Title: chapter.Title, Path: path, SavedPath: saved})
	}

	return files, nil
}

// matchLoudness returns the loudness matched copy of path, or path itself
// when matching fails.
func (c *Converter) matchLoudness(path, title string) string {
	matched := strings.TrimSuffix(path, filepath.Ext(path)) + "_matched.mp3"
	if err := c.matcher.Apply(path, matched); err != nil {
		log.Warn("voice matching failed, keeping original audio", "title", title, "err", err)
		_ = os.Remove(matched)
		return path
	}
	_ = os.Remove(path)
	return matched
}

var errNoAudio = errors.New("no audio generated")

// processChapter synthesizes one chapter into a working MP3.
func (c *Converter) processChapter(ctx context.Context, idx int, chapter book.Chapter) (string, error) {
	text := book.CleanText(chapter.Content)
	if text == "" {
		return "", errNoAudio
	}

	chunks := book.SplitText(text, c.opts.ChunkSize)
	var paths []string
	defer func() {
		for _, p := range paths {
			os.Remove(p)
		}
	}()

	for j, chunk := range chunks {
		a, err := c.opts.Engine.Synthesize(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.Warn("chunk failed", "title", chapter.Title, "chunk", j+1, "of", len(chunks), "err", err)
			continue
		}
		p, err := audio.WriteChunk(c.workDir, fmt.Sprintf("chapter_%03d_chunk_%04d", idx, j), a)
		if err != nil {
			return "", err
		}
		paths = append(paths, p)
		log.Debug("chunk done", "title", chapter.Title, "chunk", j+1, "of", len(chunks))
	}

	if len(paths) == 0 {
		return "", errNoAudio
	}

	out := filepath.Join(c.workDir, fmt.Sprintf("chapter_%03d.mp3", idx))
	if len(paths) == 1 {
		if filepath.Ext(paths[0]) == tts.FormatMP3.Ext() {
			return out, audio.CopyFile(paths[0], out)
		}
		return out, audio.Transcode(paths[0], out)
	}

	seg, err := audio.ConcatFiles(paths...)
	if err != nil {
		return "", err
	}
	return out, audio.Export(seg, out)
}
