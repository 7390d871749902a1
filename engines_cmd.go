package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/bookvoice/internal/tts"
	"github.com/spf13/cobra"
)

var (
	listVoices bool

	enginesCmd = &cobra.Command{
		Use:   "engines",
		Short: "Show which TTS engines are ready to use",
		Long: paragraph(fmt.Sprintf("\n%s every supported engine for missing binaries, models or credentials and explain how to set up the ones that are not ready.",
			keyword("Check"))),
		Example: paragraph("bookvoice engines\nbookvoice engines --voices"),
		Args:    cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg, err := ttsConfig()
			if err != nil {
				return err
			}
			printEngines(os.Stdout, cfg, listVoices)
			return tts.FFmpegAvailable() //nolint:wrapcheck
		},
	}
)

var (
	readyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true)
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"})
)

func init() {
	enginesCmd.Flags().BoolVar(&listVoices, "voices", false, "list the voices each engine offers")
}

func printEngines(w io.Writer, cfg tts.Config, voices bool) {
	for _, engine := range tts.EngineTypes {
		r := tts.ValidateEngine(engine, cfg)

		mark := readyStyle.Render("✓")
		if !r.Available {
			mark = missingStyle.Render("✗")
		}
		name := engine.Label()
		if engine == cfg.Engine {
			name = keyword(name) + " (selected)"
		}
		fmt.Fprintf(w, "%s %s\n", mark, name)

		keys := make([]string, 0, len(r.Details))
		for k := range r.Details {
			if k != "engine" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintln(w, detailStyle.Render(fmt.Sprintf("    %s: %s", k, r.Details[k])))
		}

		if r.Error != nil {
			fmt.Fprintln(w, detailStyle.Render("    error: "+firstLine(r.Error.Error())))
			if r.Guidance != "" {
				fmt.Fprintln(w, indent(r.Guidance, "    "))
			}
		}
		if voices {
			if v := tts.VoicesFor(engine); len(v) > 0 {
				fmt.Fprintln(w, detailStyle.Render("    voices: "+strings.Join(v, ", ")))
			}
		}
		fmt.Fprintln(w)
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
