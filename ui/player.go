package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Playback is the part of audio.Player the player view drives.
type Playback interface {
	TogglePause() bool
	Position() time.Duration
}

type (
	playTickMsg time.Time
	playDoneMsg struct{ err error }
)

// PlayerModel shows playback of one file. Space toggles pause, q quits.
type PlayerModel struct {
	title    string
	player   Playback
	duration time.Duration
	done     <-chan error

	position time.Duration
	paused   bool
	finished bool
	err      error
	width    int
}

// NewPlayerModel creates the model; done receives the result of playback.
func NewPlayerModel(title string, player Playback, duration time.Duration, done <-chan error) PlayerModel {
	return PlayerModel{title: title, player: player, duration: duration, done: done, width: 60}
}

// Err returns the playback error, if any.
func (m PlayerModel) Err() error { return m.err }

func playTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg { return playTickMsg(t) })
}

func waitForPlayback(done <-chan error) tea.Cmd {
	return func() tea.Msg { return playDoneMsg{<-done} }
}

func (m PlayerModel) Init() tea.Cmd {
	return tea.Batch(playTick(), waitForPlayback(m.done))
}

func (m PlayerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case " ", "p":
			m.paused = m.player.TogglePause()
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case playTickMsg:
		m.position = m.player.Position()
		return m, playTick()
	case playDoneMsg:
		m.finished = true
		m.err = msg.err
		m.position = m.duration
		return m, tea.Quit
	}
	return m, nil
}

func (m PlayerModel) View() string {
	icon, color := "▶", lipgloss.Color("#00FF00")
	if m.paused {
		icon, color = "⏸", lipgloss.Color("#FFFF00")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(color).Render(icon))
	b.WriteString(fmt.Sprintf(" %s / %s\n", formatDuration(m.position), formatDuration(m.duration)))
	b.WriteString(renderProgressBar(fraction(m.position, m.duration), min(m.width-4, maxBarWidth), color))
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("space: play/pause • q: quit"))
	b.WriteString("\n")
	return b.String()
}

func fraction(pos, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return min(float64(pos)/float64(total), 1)
}

// renderProgressBar creates a visual progress bar.
func renderProgressBar(progress float64, width int, color lipgloss.TerminalColor) string {
	if width < 10 {
		return ""
	}

	filledWidth := min(int(progress*float64(width)), width)
	filled := strings.Repeat("█", filledWidth)
	empty := strings.Repeat("░", width-filledWidth)

	filledStyle := lipgloss.NewStyle().Foreground(color)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#333333"))

	return filledStyle.Render(filled) + emptyStyle.Render(empty)
}
