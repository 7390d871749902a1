package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/bookvoice/internal/book"
	"github.com/dgnsrekt/bookvoice/internal/cache"
	"github.com/dgnsrekt/bookvoice/internal/convert"
	"github.com/dgnsrekt/bookvoice/internal/jobs"
	"github.com/dgnsrekt/bookvoice/internal/pdf"
	"github.com/dgnsrekt/bookvoice/internal/tts"
	"github.com/dgnsrekt/bookvoice/internal/tts/engines"
	"github.com/dgnsrekt/bookvoice/ui"
	"github.com/dgnsrekt/bookvoice/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	chapterRange string
	showAllFiles bool
	voiceSample  string

	convertCmd = &cobra.Command{
		Use:   "convert PDF|DIR",
		Short: "Convert a PDF, or every PDF below a directory, to audio",
		Long: paragraph(fmt.Sprintf("\n%s a PDF into one MP3 per chapter plus a merged audiobook. A directory converts every PDF below it, one after another.",
			keyword("Convert"))),
		Example: paragraph("bookvoice convert novel.pdf\nbookvoice convert novel.pdf --chapters 1,3-5 -e edge --voice guy\nbookvoice convert ~/books"),
		Args:    cobra.ExactArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return []string{"pdf"}, cobra.ShellCompDirectiveFilterFileExt
		},
		RunE: runConvert,
	}
)

func init() {
	convertCmd.Flags().StringVarP(&chapterRange, "chapters", "c", "", "chapters to convert, e.g. 1,3-5 (default all)")
	convertCmd.Flags().BoolVarP(&showAllFiles, "all", "a", false, "include hidden and ignored files when searching a directory")
	convertCmd.Flags().StringVar(&voiceSample, "voice-sample", "", "reference recording whose loudness the output matches")
}

func runConvert(cmd *cobra.Command, args []string) error {
	target := utils.ExpandPath(args[0])
	files, err := pdfTargets(target)
	if err != nil {
		return err
	}

	cfg, err := ttsConfig()
	if err != nil {
		return err
	}
	if r := tts.ValidateEngine(cfg.Engine, cfg); !r.Available {
		return fmt.Errorf("%w\n\n%s", r.Error, r.Guidance)
	}
	if err := tts.FFmpegAvailable(); err != nil {
		return err //nolint:wrapcheck
	}

	sample := utils.ExpandPath(voiceSample)
	if sample == "" && viper.GetBool("voice_match.enabled") {
		log.Warn("voice matching is enabled but no --voice-sample was given")
	}

	audioCache, err := openCache()
	if err != nil {
		log.Warn("cache disabled", "error", err)
	}
	if audioCache != nil {
		defer func() { _ = audioCache.Close() }()
	}

	queue := jobs.New(1)
	defer func() { _ = queue.Close() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var failed int
	for _, path := range files {
		if err := convertFile(ctx, queue, cfg, audioCache, path, sample); err != nil {
			if len(files) == 1 {
				return err
			}
			log.Error("conversion failed", "pdf", path, "error", err)
			fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(path), err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d books failed", failed, len(files))
	}
	return nil
}

// pdfTargets resolves the argument to the PDFs to convert.
func pdfTargets(target string) ([]string, error) {
	st, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", target, err)
	}
	if !st.IsDir() {
		return []string{target}, nil
	}
	files, err := ui.FindPDFs(target, showAllFiles)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no PDF files found in %s", target)
	}
	return files, nil
}

// loadChapters extracts and splits a PDF, keeping only the chapters listed
// in ranges when it is set.
func loadChapters(path, ranges string) ([]book.Chapter, error) {
	doc, err := pdf.ExtractFile(path)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	chapters := book.SplitChapters(doc.Pages)
	if len(chapters) == 0 {
		return nil, fmt.Errorf("no text found in %s", path)
	}
	if ranges == "" {
		return chapters, nil
	}
	idx, err := utils.ParseRanges(ranges, len(chapters))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return book.Select(chapters, idx), nil
}

func convertFile(ctx context.Context, queue *jobs.Queue, cfg tts.Config, audioCache *cache.Manager, path, sample string) error {
	chapters, err := loadChapters(path, chapterRange)
	if err != nil {
		return err
	}
	base := book.BaseName(filepath.Base(path))

	job, err := queue.Submit(func(ctx context.Context, report convert.Progress) (jobs.Result, error) {
		engine, err := engines.New(ctx, cfg)
		if err != nil {
			return jobs.Result{}, err //nolint:wrapcheck
		}
		defer engine.Close() //nolint:errcheck
		engine = engines.Wrap(engine, audioCache)

		conv, err := convert.New(convert.Options{
			Engine:      engine,
			ChunkSize:   viper.GetInt("chunk_size"),
			OutputDir:   outputDir(),
			BaseName:    base,
			VoiceSample: sample,
			TempDir:     cfg.TempDir,
		})
		if err != nil {
			return jobs.Result{}, err //nolint:wrapcheck
		}
		defer conv.Close() //nolint:errcheck

		res, err := conv.Run(ctx, chapters, report)
		return jobs.Result{Files: res.Files, Complete: res.Complete}, err
	})
	if err != nil {
		return err //nolint:wrapcheck
	}

	updates, unsubscribe, err := queue.Subscribe(job.ID)
	if err != nil {
		return err //nolint:wrapcheck
	}
	defer unsubscribe()

	if term.IsTerminal(int(os.Stdout.Fd())) {
		cancel := func() { _ = queue.Cancel(job.ID) }
		model := ui.NewConvertModel(fmt.Sprintf("%s (%d chapters)", base, len(chapters)), updates, cancel)
		if _, err := tea.NewProgram(model).Run(); err != nil {
			return fmt.Errorf("unable to run tui program: %w", err)
		}
		waitDone(updates)
	} else {
		for {
			select {
			case u, ok := <-updates:
				if !ok {
					return reportJob(queue, job.ID)
				}
				fmt.Println(ui.PlainProgress(u))
			case <-ctx.Done():
				_ = queue.Cancel(job.ID)
				ctx = context.Background()
			}
		}
	}
	return reportJob(queue, job.ID)
}

// waitDone blocks until the job behind updates has finished. The TUI quits
// as soon as a cancel is requested, while the job may still be running.
func waitDone(updates <-chan jobs.Update) {
	for range updates { //nolint:revive
	}
}

// reportJob prints where the audio of a finished job was saved.
func reportJob(queue *jobs.Queue, id string) error {
	job, ok := queue.Get(id)
	if !ok {
		return jobs.ErrNotFound
	}
	for _, f := range job.Files {
		fmt.Println(f.SavedPath)
	}
	if job.Complete != "" {
		fmt.Println(keyword(job.Complete))
	}

	switch job.State {
	case jobs.StateDone:
		return nil
	case jobs.StateCanceled:
		return errors.New("conversion canceled")
	default:
		return fmt.Errorf("conversion failed: %s", job.Err)
	}
}
