package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgnsrekt/bookvoice/internal/jobs"
)

const maxBarWidth = 80

type (
	jobUpdateMsg     jobs.Update
	jobUpdatesClosed struct{}
)

// ConvertModel shows the progress of one conversion job until it
// finishes. Pressing q cancels the job.
type ConvertModel struct {
	title   string
	updates <-chan jobs.Update
	cancel  func()

	status    *StatusDisplay
	spinner   spinner.Model
	bar       progress.Model
	width     int
	canceling bool
	finished  bool
	now       func() time.Time
}

// NewConvertModel creates the model. cancel is called once when the user
// asks to stop.
func NewConvertModel(title string, updates <-chan jobs.Update, cancel func()) ConvertModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = noteStyle

	return ConvertModel{
		title:   title,
		updates: updates,
		cancel:  cancel,
		status:  NewStatusDisplay(),
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		width:   80,
		now:     time.Now,
	}
}

// State returns the job state last seen.
func (m ConvertModel) State() jobs.State { return m.status.State() }

func waitForUpdate(ch <-chan jobs.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return jobUpdatesClosed{}
		}
		return jobUpdateMsg(u)
	}
}

func (m ConvertModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForUpdate(m.updates))
}

func (m ConvertModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if m.finished {
				return m, tea.Quit
			}
			if !m.canceling && m.cancel != nil {
				m.canceling = true
				m.cancel()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-4, 10), maxBarWidth)
		return m, nil

	case jobUpdateMsg:
		m.status.Update(jobs.Update(msg), m.now())
		return m, waitForUpdate(m.updates)

	case jobUpdatesClosed:
		m.finished = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ConvertModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	if !m.finished {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
	}
	b.WriteString(m.status.DetailedStatus(m.width - 2))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(m.status.Progress()))
	b.WriteString("\n\n")

	switch {
	case m.finished:
	case m.canceling:
		b.WriteString(helpStyle.Render("canceling after the current chunk..."))
	default:
		b.WriteString(helpStyle.Render("q: cancel"))
	}
	b.WriteString("\n")
	return b.String()
}

// PlainProgress formats an update as a single log line for non-terminal
// output.
func PlainProgress(u jobs.Update) string {
	line := fmt.Sprintf("[%3d%%] %s", int(u.Progress*100), u.Message)
	if u.Err != "" {
		line += ": " + u.Err
	}
	return line
}
