package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgnsrekt/bookvoice/internal/audio"
	"github.com/dgnsrekt/bookvoice/internal/convert"
	"github.com/dgnsrekt/bookvoice/ui"
	"github.com/dgnsrekt/bookvoice/utils"
	"github.com/spf13/cobra"
)

var (
	playChapter int

	playCmd = &cobra.Command{
		Use:   "play FILE",
		Short: "Play a generated chapter or audiobook",
		Long: paragraph(fmt.Sprintf("\n%s an MP3, or a book through its manifest. Space pauses, q stops.",
			keyword("Play"))),
		Example: paragraph("bookvoice play novel_complete_20240309_140507.mp3\nbookvoice play novel_manifest.yaml --chapter 3"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, title, err := playTarget(utils.ExpandPath(args[0]), playChapter)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return playFile(ctx, path, title)
		},
	}
)

func init() {
	playCmd.Flags().IntVar(&playChapter, "chapter", 0, "chapter to play from a manifest (default the merged book)")
}

// playTarget resolves a manifest to one of its files; any other path is
// played as is.
func playTarget(path string, chapter int) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return path, filepath.Base(path), nil
	}

	m, err := convert.ReadManifest(path)
	if err != nil {
		return "", "", err //nolint:wrapcheck
	}
	dir := filepath.Dir(path)

	switch {
	case chapter > 0:
		if chapter > len(m.Chapters) {
			return "", "", fmt.Errorf("%s has %d chapters", m.Book, len(m.Chapters))
		}
		e := m.Chapters[chapter-1]
		return filepath.Join(dir, e.File), m.Book + ": " + e.Title, nil
	case m.Complete != "":
		return filepath.Join(dir, m.Complete), m.Book, nil
	case len(m.Chapters) > 0:
		e := m.Chapters[0]
		return filepath.Join(dir, e.File), m.Book + ": " + e.Title, nil
	default:
		return "", "", fmt.Errorf("manifest %s lists no audio", path)
	}
}

func playFile(ctx context.Context, path, title string) error {
	cfg := audio.DefaultPlayerConfig()
	pcm, err := audio.DecodePCM(ctx, path, cfg.SampleRate)
	if err != nil {
		return err //nolint:wrapcheck
	}

	player, err := audio.NewPlayer(cfg)
	if err != nil {
		return err //nolint:wrapcheck
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- player.Play(ctx, pcm) }()

	model := ui.NewPlayerModel(title, player, audio.PCMDuration(pcm, cfg.SampleRate), done)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	if m, ok := final.(ui.PlayerModel); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}
