package cmd

import "github.com/charmbracelet/lipgloss"

// LipGloss signature purple/pink palette
var (
	headerColor  = lipgloss.Color("#F780FF") // Bright pink
	botColor     = lipgloss.Color("#BD93F9") // Purple
	numberColor  = lipgloss.Color("#FF79C6") // Pink
	textColor    = lipgloss.Color("#E9E9F4") // Light purple/white
	mutedColor   = lipgloss.Color("#6272A4") // Muted purple
	summaryColor = lipgloss.Color("#8BE9FD") // Cyan
	errorColor   = lipgloss.Color("#FF5555") // Red
	successColor = lipgloss.Color("#50FA7B") // Green
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(headerColor).Bold(true)
	botStyle     = lipgloss.NewStyle().Foreground(botColor).Bold(true)
	answerStyle  = lipgloss.NewStyle().Foreground(textColor)
	contextStyle = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	summaryStyle = lipgloss.NewStyle().Foreground(summaryColor).Italic(true)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	borderStyle  = lipgloss.NewStyle().Foreground(mutedColor)
)
