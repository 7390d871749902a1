package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/bookvoice/internal/jobs"
	"github.com/muesli/reflow/truncate"
)

// StatusDisplay renders the state of a conversion job.
type StatusDisplay struct {
	state    jobs.State
	progress float64
	message  string
	err      string
	started  time.Time
	elapsed  time.Duration
}

// NewStatusDisplay creates an empty status display.
func NewStatusDisplay() *StatusDisplay {
	return &StatusDisplay{state: jobs.StateQueued}
}

// Update applies a job update.
func (s *StatusDisplay) Update(u jobs.Update, now time.Time) {
	if u.State == jobs.StateRunning && s.started.IsZero() {
		s.started = now
	}
	if !s.started.IsZero() {
		s.elapsed = now.Sub(s.started)
	}
	s.state = u.State
	s.progress = u.Progress
	s.message = u.Message
	s.err = u.Err
}

// State returns the last known job state.
func (s *StatusDisplay) State() jobs.State { return s.state }

// Progress returns the fraction of chapters started.
func (s *StatusDisplay) Progress() float64 { return s.progress }

// CompactStatus returns a one-line status.
func (s *StatusDisplay) CompactStatus() string {
	status := lipgloss.NewStyle().Foreground(stateColor(s.state)).
		Render(fmt.Sprintf("%s %s", stateIcon(s.state), s.state))

	if s.state == jobs.StateRunning {
		status += noteStyle.Render(fmt.Sprintf(" %3d%%", int(s.progress*100)))
	}
	if s.elapsed > 0 {
		status += noteStyle.Render(" " + formatDuration(s.elapsed))
	}
	return status
}

// DetailedStatus returns a multi-line status no wider than width.
func (s *StatusDisplay) DetailedStatus(width int) string {
	lines := []string{s.CompactStatus()}

	if s.message != "" {
		lines = append(lines, truncate.StringWithTail(s.message, uint(max(width, 4)), "...")) //nolint:gosec
	}
	if s.err != "" {
		errorLine := truncate.StringWithTail(s.err, uint(max(width-9, 4)), "...") //nolint:gosec
		lines = append(lines, errorStyle.Render("Error: "+errorLine))
	}
	return strings.Join(lines, "\n")
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
