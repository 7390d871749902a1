package convert

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/bookvoice/internal/audio"
	"github.com/dgnsrekt/bookvoice/internal/book"
	"github.com/dgnsrekt/bookvoice/internal/tts"
	"github.com/dgnsrekt/bookvoice/internal/tts/engines"
)

var fixedTime = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

// echoEngine returns the text itself labelled as MP3, so single chunk
// chapters never need ffmpeg.
type echoEngine struct {
	failOn  string
	maxText int
	calls   []string
}

func (e *echoEngine) Synthesize(ctx context.Context, text string) (tts.Audio, error) {
	if err := ctx.Err(); err != nil {
		return tts.Audio{}, err
	}
	e.calls = append(e.calls, text)
	if e.maxText > 0 && len([]rune(text)) > e.maxText {
		return tts.Audio{}, tts.NewTTSError(tts.EngineMock, tts.ErrorCodeTextTooLong, "too long", tts.ErrTextTooLong)
	}
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return tts.Audio{}, tts.NewTTSError(tts.EngineMock, tts.ErrorCodeEngineFailure, "refused", nil)
	}
	return tts.Audio{Data: []byte("ID3" + text), Format: tts.FormatMP3}, nil
}

func (e *echoEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{Name: "echo", Voice: "plain", Format: tts.FormatMP3, MaxTextSize: e.maxText}
}
func (e *echoEngine) Validate() error { return nil }
func (e *echoEngine) Close() error    { return nil }

func newConverter(t *testing.T, engine tts.Engine, mutate ...func(*Options)) *Converter {
	t.Helper()
	opts := Options{
		Engine:    engine,
		OutputDir: t.TempDir(),
		BaseName:  "novel",
		TempDir:   t.TempDir(),
		Clock:     func() time.Time { return fixedTime },
	}
	for _, m := range mutate {
		m(&opts)
	}
	c, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func requireFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
}

type progressCall struct {
	fraction float64
	message  string
}

func TestProcessChapters(t *testing.T) {
	engine := &echoEngine{}
	c := newConverter(t, engine)

	chapters := []book.Chapter{
		{Index: 0, Title: "Chapter 1", Content: "It was   a dark\nnight."},
		{Index: 1, Title: "Chapter 2", Content: "  \n\t "},
		{Index: 2, Title: "Chapter 3", Content: "The end™ really."},
	}

	var calls []progressCall
	files, err := c.ProcessChapters(context.Background(), chapters, func(f float64, msg string) {
		calls = append(calls, progressCall{f, msg})
	})
	if err != nil {
		t.Fatal(err)
	}

	wantProgress := []progressCall{
		{1.0 / 3, "Processing Chapter 1..."},
		{2.0 / 3, "Processing Chapter 2..."},
		{1, "Processing Chapter 3..."},
	}
	if len(calls) != len(wantProgress) {
		t.Fatalf("progress calls = %v", calls)
	}
	for i, want := range wantProgress {
		if calls[i] != want {
			t.Errorf("progress[%d] = %v, want %v", i, calls[i], want)
		}
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 files (blank chapter skipped), got %d", len(files))
	}
	if files[0].Title != "Chapter 1" || files[1].Title != "Chapter 3" {
		t.Errorf("titles = %q, %q", files[0].Title, files[1].Title)
	}

	wantName := "novel_Chapter_1_20240309_140507.mp3"
	if filepath.Base(files[0].SavedPath) != wantName {
		t.Errorf("saved as %s, want %s", filepath.Base(files[0].SavedPath), wantName)
	}
	data, err := os.ReadFile(files[0].SavedPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "ID3It was a dark night." {
		t.Errorf("chapter audio = %q", data)
	}

	if got := engine.calls[1]; got != "The end really." {
		t.Errorf("cleaned text = %q", got)
	}
}

func TestProcessChapters_FailedChunksAreSkipped(t *testing.T) {
	engine := &echoEngine{failOn: "cursed"}
	c := newConverter(t, engine)

	chapters := []book.Chapter{
		{Title: "Chapter 1", Content: "a cursed page"},
		{Title: "Chapter 2", Content: "a fine page"},
	}
	files, err := c.ProcessChapters(context.Background(), chapters, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Title != "Chapter 2" {
		t.Fatalf("expected only Chapter 2, got %+v", files)
	}
}

func TestProcessChapters_Canceled(t *testing.T) {
	engine := &echoEngine{}
	c := newConverter(t, engine)

	chapters := make([]book.Chapter, 4)
	for i := range chapters {
		chapters[i] = book.Chapter{Index: i, Title: fmt.Sprintf("Chapter %d", i+1), Content: "words"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	files, err := c.ProcessChapters(ctx, chapters, func(f float64, _ string) {
		if f > 0.3 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(files) != 1 {
		t.Errorf("expected the first chapter to be kept, got %d files", len(files))
	}
}

func TestProcessChapters_MultipleChunks(t *testing.T) {
	requireFFmpeg(t)

	mock := engines.NewMockEngine(t.TempDir())
	c := newConverter(t, mock, func(o *Options) { o.ChunkSize = 40 })

	content := strings.Repeat("Some words to speak aloud. ", 8)
	files, err := c.ProcessChapters(context.Background(), []book.Chapter{{Title: "Chapter 1", Content: content}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if n := len(mock.Calls()); n < 5 {
		t.Errorf("expected several chunks, engine saw %d", n)
	}

	// Chunk files are removed once the chapter is assembled.
	left, _ := filepath.Glob(filepath.Join(c.workDir, "*_chunk_*"))
	if len(left) != 0 {
		t.Errorf("chunk files left behind: %v", left)
	}

	head, _ := os.ReadFile(files[0].SavedPath)
	if len(head) < 3 || strings.HasPrefix(string(head), "RIFF") {
		t.Error("chapter should be exported as MP3, not WAV")
	}
}

func TestMergeAll(t *testing.T) {
	requireFFmpeg(t)

	mock := engines.NewMockEngine(t.TempDir())
	c := newConverter(t, mock)

	chapters := []book.Chapter{
		{Title: "Chapter 1", Content: "first"},
		{Title: "Chapter 2", Content: "second"},
	}
	files, err := c.ProcessChapters(context.Background(), chapters, nil)
	if err != nil {
		t.Fatal(err)
	}

	files = append(files, AudioFile{Title: "ghost", Path: filepath.Join(t.TempDir(), "missing.mp3")})
	saved, err := c.MergeAll(files, c.MergePath())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(saved) != "novel_complete_20240309_140507.mp3" {
		t.Errorf("saved as %s", filepath.Base(saved))
	}
	if _, err := os.Stat(c.MergePath()); err != nil {
		t.Errorf("working copy missing: %v", err)
	}
}

func TestMergeAll_Nothing(t *testing.T) {
	c := newConverter(t, &echoEngine{})
	missing := []AudioFile{{Title: "x", Path: filepath.Join(t.TempDir(), "nope.mp3")}}
	if _, err := c.MergeAll(missing, c.MergePath()); !errors.Is(err, ErrNothingToMerge) {
		t.Errorf("expected ErrNothingToMerge, got %v", err)
	}
	if _, err := c.MergeAll(nil, c.MergePath()); !errors.Is(err, ErrNothingToMerge) {
		t.Errorf("expected ErrNothingToMerge for no files, got %v", err)
	}
}

func TestWriteManifest(t *testing.T) {
	c := newConverter(t, &echoEngine{})
	out := c.Options().OutputDir

	files := []AudioFile{
		{Title: "Chapter 1", SavedPath: filepath.Join(out, "novel_Chapter_1.mp3")},
		{Title: "Chapter 2", SavedPath: filepath.Join(out, "novel_Chapter_2.mp3")},
	}
	path, err := c.WriteManifest(files, filepath.Join(out, "novel_complete.mp3"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "novel_manifest.yaml" {
		t.Errorf("manifest written to %s", path)
	}

	m, err := ReadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Book != "novel" || m.Engine != "echo" || m.Complete != "novel_complete.mp3" {
		t.Errorf("unexpected manifest %+v", m)
	}
	if len(m.Chapters) != 2 || m.Chapters[1].File != "novel_Chapter_2.mp3" {
		t.Errorf("chapters = %+v", m.Chapters)
	}
	if !m.Generated.Equal(fixedTime) {
		t.Errorf("generated = %v", m.Generated)
	}
}

func TestNew_RequiresEngine(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, tts.ErrNoEngineConfigured) {
		t.Errorf("expected ErrNoEngineConfigured, got %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	c := newConverter(t, &echoEngine{}, func(o *Options) { o.BaseName = ""; o.ChunkSize = 0 })
	opts := c.Options()
	if opts.BaseName != book.DefaultBaseName || opts.ChunkSize != book.DefaultChunkSize {
		t.Errorf("defaults not applied: %+v", opts)
	}
}

func TestNew_ChunkSizeCappedAtEngineLimit(t *testing.T) {
	engine := &echoEngine{maxText: 20}
	c := newConverter(t, engine, func(o *Options) { o.ChunkSize = 100 })
	if got := c.Options().ChunkSize; got != 20 {
		t.Fatalf("ChunkSize = %d, want the engine limit 20", got)
	}

	content := strings.Repeat("tiny words here ", 6)
	_, _ = c.ProcessChapters(context.Background(), []book.Chapter{{Title: "Chapter 1", Content: content}}, nil)

	if len(engine.calls) < 2 {
		t.Fatalf("expected several chunks, engine saw %d", len(engine.calls))
	}
	for _, text := range engine.calls {
		if n := len([]rune(text)); n > 20 {
			t.Errorf("chunk of %d characters sent to an engine limited to 20", n)
		}
	}
}

// writeSample writes a WAV tone to use as a voice sample.
func writeSample(t *testing.T, amplitude float64) string {
	t.Helper()
	dir := t.TempDir()
	data, err := engines.Tone(dir, time.Second, amplitude)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "sample.wav")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessChapters_UnreadableVoiceSample(t *testing.T) {
	c := newConverter(t, &echoEngine{}, func(o *Options) {
		o.VoiceSample = filepath.Join(t.TempDir(), "missing.wav")
	})

	files, err := c.ProcessChapters(context.Background(), []book.Chapter{{Title: "Chapter 1", Content: "hello there"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if _, ok := c.matcher.Target(); ok {
		t.Error("matching should be disabled after a failed analysis")
	}
	data, _ := os.ReadFile(files[0].SavedPath)
	if string(data) != "ID3hello there" {
		t.Errorf("saved audio = %q, want the unmatched chunk", data)
	}
}

func TestProcessChapters_FailedMatchKeepsAudio(t *testing.T) {
	requireFFmpeg(t)

	// The echo engine's output is not decodable, so matching fails.
	c := newConverter(t, &echoEngine{}, func(o *Options) { o.VoiceSample = writeSample(t, 0.8) })

	files, err := c.ProcessChapters(context.Background(), []book.Chapter{{Title: "Chapter 1", Content: "hello there"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	data, _ := os.ReadFile(files[0].SavedPath)
	if string(data) != "ID3hello there" {
		t.Errorf("saved audio = %q, want the original chapter audio", data)
	}
}

func TestProcessChapters_VoiceMatching(t *testing.T) {
	requireFFmpeg(t)

	sample := writeSample(t, 0.8)
	ref, err := audio.Load(sample)
	if err != nil {
		t.Fatal(err)
	}
	target := float64(ref.DBFS())

	mock := engines.NewMockEngine(t.TempDir())
	mock.Amplitude = 0.1
	c := newConverter(t, mock, func(o *Options) { o.VoiceSample = sample })

	files, err := c.ProcessChapters(context.Background(), []book.Chapter{{Title: "Chapter 1", Content: "a quiet voice speaking"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}

	seg, err := audio.Load(files[0].SavedPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := float64(seg.DBFS()); math.Abs(got-target) > 1.5 {
		t.Errorf("chapter loudness = %.2f dBFS, want about %.2f", got, target)
	}
}

func TestRun(t *testing.T) {
	c := newConverter(t, &echoEngine{})

	res, err := c.Run(context.Background(), []book.Chapter{{Title: "Chapter 1", Content: "only one"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Files) != 1 || res.Complete != "" {
		t.Errorf("single chapter should not be merged: %+v", res)
	}
	if filepath.Base(res.Manifest) != "novel_manifest.yaml" {
		t.Errorf("manifest = %q", res.Manifest)
	}

	if _, err := c.Run(context.Background(), []book.Chapter{{Title: "Chapter 1", Content: "\n"}}, nil); !errors.Is(err, ErrNoAudio) {
		t.Errorf("expected ErrNoAudio, got %v", err)
	}
}
