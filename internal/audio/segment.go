package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/bookvoice/internal/tts"
	"github.com/iFaceless/godub"
)

// Export settings for chapter and merged files.
const (
	ExportFormat  = "mp3"
	ExportBitRate = 192000
	FrameRate     = 24000
)

// ErrNoSegments is returned when there is nothing to join.
var ErrNoSegments = errors.New("no audio segments")

// Segment is decoded audio ready for editing.
type Segment = godub.AudioSegment

// Load decodes an audio file of any format ffmpeg understands.
func Load(path string) (*Segment, error) {
	seg, err := godub.NewLoader().Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", filepath.Base(path), err)
	}
	return seg, nil
}

// WriteChunk stores synthesized audio under dir and returns its path. The
// extension follows the audio format so ffmpeg can detect it.
func WriteChunk(dir, name string, a tts.Audio) (string, error) {
	format := a.Format
	if format == "" {
		format = tts.FormatMP3
	}
	path := filepath.Join(dir, name+format.Ext())
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return "", fmt.Errorf("writing chunk: %w", err)
	}
	return path, nil
}

// Concat appends segments in order.
func Concat(segs ...*Segment) (*Segment, error) {
	if len(segs) == 0 {
		return nil, ErrNoSegments
	}
	if len(segs) == 1 {
		return segs[0], nil
	}
	out, err := segs[0].Append(segs[1:]...)
	if err != nil {
		return nil, fmt.Errorf("joining audio: %w", err)
	}
	return out, nil
}

// ConcatFiles loads and joins audio files in order.
func ConcatFiles(paths ...string) (*Segment, error) {
	segs := make([]*Segment, 0, len(paths))
	for _, p := range paths {
		seg, err := Load(p)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	return Concat(segs...)
}

// Silence returns d of silence, rounded down to whole milliseconds.
func Silence(d time.Duration) (*Segment, error) {
	seg, err := godub.NewSilentAudioSegment(int(d.Milliseconds()), FrameRate)
	if err != nil {
		return nil, fmt.Errorf("creating silence: %w", err)
	}
	return seg, nil
}

// JoinWithGap joins files in order with gap of silence between neighbours.
// Files that fail to load are skipped with a warning; ErrNoSegments is
// returned when none loads.
func JoinWithGap(paths []string, gap time.Duration) (*Segment, error) {
	silence, err := Silence(gap)
	if err != nil {
		return nil, err
	}

	segs := make([]*Segment, 0, 2*len(paths))
	for _, p := range paths {
		seg, err := Load(p)
		if err != nil {
			log.Warn("skipping audio file", "file", filepath.Base(p), "err", err)
			continue
		}
		if len(segs) > 0 {
			segs = append(segs, silence)
		}
		segs = append(segs, seg)
	}
	return Concat(segs...)
}

// Export encodes seg as MP3 at path. The file at path is only replaced
// once encoding succeeded.
func Export(seg *Segment, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".export-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("exporting %s: %w", filepath.Base(path), err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()

	err = godub.NewExporter(tmpPath).
		WithDstFormat(ExportFormat).
		WithBitRate(ExportBitRate).
		Export(seg)
	if err == nil {
		err = os.Rename(tmpPath, path)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("exporting %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Transcode re-encodes any audio file to MP3 at dst.
func Transcode(src, dst string) error {
	seg, err := Load(src)
	if err != nil {
		return err
	}
	return Export(seg, dst)
}

// CopyFile copies src to dst byte for byte.
func CopyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
