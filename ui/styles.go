// Package ui holds the terminal front end: conversion progress, playback
// and chapter listings.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/bookvoice/internal/jobs"
)

var (
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}
	grey      = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(darkGreen).
			Padding(0, 1)

	noteStyle  = lipgloss.NewStyle().Foreground(grey)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#949494", Dark: "#5A5A5A"})
)

// stateColor returns the color a job state is drawn in.
func stateColor(s jobs.State) lipgloss.TerminalColor {
	switch s {
	case jobs.StateRunning:
		return mintGreen
	case jobs.StateQueued:
		return lipgloss.Color("#00AAFF") // Blue
	case jobs.StateDone:
		return lipgloss.Color("#00FF00") // Green
	case jobs.StateFailed:
		return lipgloss.Color("#FF0000") // Red
	case jobs.StateCanceled:
		return lipgloss.Color("#FF8800") // Orange
	default:
		return lipgloss.Color("#666666") // Dark gray
	}
}

// stateIcon returns an icon for a job state.
func stateIcon(s jobs.State) string {
	switch s {
	case jobs.StateRunning:
		return "▶"
	case jobs.StateQueued:
		return "⟳"
	case jobs.StateDone:
		return "✓"
	case jobs.StateFailed:
		return "✗"
	case jobs.StateCanceled:
		return "◼"
	default:
		return "○"
	}
}
